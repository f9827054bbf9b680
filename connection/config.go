package connection

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidConfig = errors.New("invalid serial configuration")

// Parity is the single-letter parity code used on the wire config.
type Parity string

const (
	ParityNone  Parity = "N"
	ParityEven  Parity = "E"
	ParityOdd   Parity = "O"
	ParityMark  Parity = "M"
	ParitySpace Parity = "S"
)

// StopBits is the number of stop bits; 1.5 is a legal value.
type StopBits float64

const (
	StopBitsOne          StopBits = 1
	StopBitsOnePointFive StopBits = 1.5
	StopBitsTwo          StopBits = 2
)

func (s StopBits) String() string {
	return strconv.FormatFloat(float64(s), 'g', -1, 64)
}

// Legal values for the enumerated settings.
var (
	BaudRates = []int{
		50, 75, 110, 134, 150, 200, 300, 600, 1200, 1800, 2400, 4800,
		9600, 19200, 38400, 57600, 115200, 230400, 460800, 500000,
		576000, 921600, 1000000, 1152000, 1500000, 2000000, 2500000,
		3000000, 3500000, 4000000,
	}
	ByteSizes      = []int{5, 6, 7, 8}
	Parities       = []Parity{ParityNone, ParityEven, ParityOdd, ParityMark, ParitySpace}
	StopBitsValues = []StopBits{StopBitsOne, StopBitsOnePointFive, StopBitsTwo}
)

// Config holds the settings of a serial connection. Timeouts are in seconds;
// a nil timeout means "no timeout".
type Config struct {
	Port             string   `json:"port"`
	BaudRate         int      `json:"baudrate"`
	ByteSize         int      `json:"bytesize"`
	Parity           Parity   `json:"parity"`
	StopBits         StopBits `json:"stopbits"`
	ReadTimeout      *int     `json:"timeout,omitempty"`
	WriteTimeout     *int     `json:"write_timeout,omitempty"`
	InterByteTimeout *int     `json:"inter_byte_timeout,omitempty"`
	XonXoff          bool     `json:"xonxoff"`
	RtsCts           bool     `json:"rtscts"`
	DsrDtr           bool     `json:"dsrdtr"`
}

// DefaultConfig returns 9600 8N1 with no timeouts and no flow control.
func DefaultConfig() Config {
	return Config{
		BaudRate: 9600,
		ByteSize: 8,
		Parity:   ParityNone,
		StopBits: StopBitsOne,
	}
}

// Seconds returns a pointer to v, for filling the optional timeout fields.
func Seconds(v int) *int {
	return &v
}

// Validate checks every enumerated field against its legal set.
func (c Config) Validate() error {
	if !contains(BaudRates, c.BaudRate) {
		return fmt.Errorf("%w: baud rate %d", ErrInvalidConfig, c.BaudRate)
	}
	if !contains(ByteSizes, c.ByteSize) {
		return fmt.Errorf("%w: byte size %d", ErrInvalidConfig, c.ByteSize)
	}
	if !contains(Parities, c.Parity) {
		return fmt.Errorf("%w: parity %q", ErrInvalidConfig, c.Parity)
	}
	if !contains(StopBitsValues, c.StopBits) {
		return fmt.Errorf("%w: stop bits %s", ErrInvalidConfig, c.StopBits)
	}
	timeouts := []struct {
		name  string
		value *int
	}{
		{"read timeout", c.ReadTimeout},
		{"write timeout", c.WriteTimeout},
		{"inter-byte timeout", c.InterByteTimeout},
	}
	for _, t := range timeouts {
		if t.value != nil && *t.value < 0 {
			return fmt.Errorf("%w: %s %d", ErrInvalidConfig, t.name, *t.value)
		}
	}
	return nil
}

// Clone returns a copy whose timeout pointers are not shared with c.
func (c Config) Clone() Config {
	out := c
	out.ReadTimeout = cloneTimeout(c.ReadTimeout)
	out.WriteTimeout = cloneTimeout(c.WriteTimeout)
	out.InterByteTimeout = cloneTimeout(c.InterByteTimeout)
	return out
}

func cloneTimeout(t *int) *int {
	if t == nil {
		return nil
	}
	return Seconds(*t)
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
