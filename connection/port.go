package connection

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/tarm/serial"
)

var (
	ErrPortClosed = errors.New("serial port is not open")
	ErrNoPort     = errors.New("no serial port selected")
)

// Source is the read side of a serial connection.
type Source interface {
	Settings() Config
	IsOpen() bool
}

// Opener opens the driver-level port described by c.
type Opener func(c *serial.Config) (io.ReadWriteCloser, error)

// overridden in tests
var openPort Opener = func(c *serial.Config) (io.ReadWriteCloser, error) {
	return serial.OpenPort(c)
}

type PortOption func(*Port)

// WithOpener replaces the tarm driver, e.g. with a fake in tests.
func WithOpener(open Opener) PortOption {
	return func(p *Port) {
		p.open = open
	}
}

// Port owns one serial connection and the settings it is opened with.
type Port struct {
	mu     sync.Mutex
	config Config
	handle io.ReadWriteCloser
	open   Opener
}

func NewPort(config Config, opts ...PortOption) *Port {
	p := &Port{config: config.Clone(), open: openPort}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Port) Settings() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config.Clone()
}

func (p *Port) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil
}

// Open opens the port with the current settings. Opening an already open
// port closes the previous handle first.
func (p *Port) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != nil {
		log.Println("closing previous port", p.config.Port)
		p.closeLocked()
	}
	return p.openLocked()
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil {
		return ErrPortClosed
	}
	return p.closeLocked()
}

// Configure validates and stores new settings. An open port is reopened so
// the new settings take effect; if that fails the settings stay stored and
// the port is left closed.
func (p *Port) Configure(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	wasOpen := p.handle != nil
	if wasOpen {
		p.closeLocked()
	}
	p.config = config.Clone()
	log.Printf("serial settings updated: %s %d %d%s%s", p.config.Port, p.config.BaudRate,
		p.config.ByteSize, p.config.Parity, p.config.StopBits)

	if wasOpen {
		return p.openLocked()
	}
	return nil
}

func (p *Port) openLocked() error {
	if p.config.Port == "" {
		return ErrNoPort
	}
	c, err := driverConfig(p.config)
	if err != nil {
		return err
	}

	handle, err := p.open(c)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.config.Port, err)
	}
	p.handle = handle
	log.Println("port opened:", p.config.Port)
	return nil
}

func (p *Port) closeLocked() error {
	err := p.handle.Close()
	p.handle = nil
	if err != nil {
		log.Println("error closing port:", err)
		return fmt.Errorf("close %s: %w", p.config.Port, err)
	}
	log.Println("port closed:", p.config.Port)
	return nil
}

// driverConfig maps settings onto the tarm driver. It has no flow control
// or write timeout, so those are only reported.
func driverConfig(c Config) (*serial.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	out := &serial.Config{
		Name:   c.Port,
		Baud:   c.BaudRate,
		Size:   byte(c.ByteSize),
		Parity: serial.Parity(c.Parity[0]),
	}
	switch c.StopBits {
	case StopBitsOne:
		out.StopBits = serial.Stop1
	case StopBitsOnePointFive:
		out.StopBits = serial.Stop1Half
	case StopBitsTwo:
		out.StopBits = serial.Stop2
	}
	if c.ReadTimeout != nil {
		out.ReadTimeout = time.Duration(*c.ReadTimeout) * time.Second
	}

	if c.WriteTimeout != nil || c.InterByteTimeout != nil {
		log.Println("write and inter-byte timeouts are not supported by the driver, ignoring")
	}
	if c.XonXoff || c.RtsCts || c.DsrDtr {
		log.Println("flow control is not supported by the driver, ignoring")
	}
	return out, nil
}
