// Package settings implements the serial connection settings window.
package settings

import (
	"errors"
	"log"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"serialsettings/connection"
)

const (
	Title = "Connection Settings"

	StatusOpened = "Opened"
	StatusClosed = "Closed"
)

var ErrNoConnection = errors.New("no active serial connection")

type Option func(*View)

// WithApply makes Apply hand the edited settings to fn. Without it Apply
// closes the window and the edits are dropped, same as Cancel.
func WithApply(fn func(connection.Config) error) Option {
	return func(v *View) {
		v.onApply = fn
	}
}

// WithOnClosed registers fn to run once when the window closes, whichever
// way it was closed.
func WithOnClosed(fn func()) Option {
	return func(v *View) {
		v.onClosed = fn
	}
}

// View shows the settings of a connection. It reads the source once, when
// it is built, and never writes to it.
type View struct {
	window  fyne.Window
	initial connection.Config
	closed  bool

	onApply  func(connection.Config) error
	onClosed func()

	portEntry   *widget.Entry
	statusEntry *widget.Entry

	baudRate *widget.Select
	byteSize *widget.Select
	parity   *widget.Select
	stopBits *widget.Select

	readTimeout      *Spinner
	writeTimeout     *Spinner
	interByteTimeout *Spinner

	softwareFlow *BoolSelect
	rtsCts       *BoolSelect
	dsrDtr       *BoolSelect

	applyButton  *widget.Button
	cancelButton *widget.Button

	form *widget.Form
}

// NewView builds the settings window for src. The parent window stands for
// the connection context; without it there is nothing to configure.
func NewView(parent fyne.Window, src connection.Source, opts ...Option) (*View, error) {
	if parent == nil || src == nil {
		return nil, ErrNoConnection
	}

	v := &View{initial: src.Settings()}
	for _, opt := range opts {
		opt(v)
	}

	v.createPortEntry(v.initial.Port)
	v.createStatusEntry(src.IsOpen())
	v.baudRate = newChoice(intOptions(connection.BaudRates), strconv.Itoa(v.initial.BaudRate))
	v.byteSize = newChoice(intOptions(connection.ByteSizes), strconv.Itoa(v.initial.ByteSize))
	v.parity = newChoice(parityOptions(), string(v.initial.Parity))
	v.stopBits = newChoice(stopBitsOptions(), v.initial.StopBits.String())
	v.readTimeout = newTimeoutSpinner(v.initial.ReadTimeout)
	v.writeTimeout = newTimeoutSpinner(v.initial.WriteTimeout)
	v.interByteTimeout = newTimeoutSpinner(v.initial.InterByteTimeout)
	v.softwareFlow = NewBoolSelect(v.initial.XonXoff, nil)
	v.rtsCts = NewBoolSelect(v.initial.RtsCts, nil)
	v.dsrDtr = NewBoolSelect(v.initial.DsrDtr, nil)
	v.applyButton = widget.NewButton("Apply", v.apply)
	v.cancelButton = widget.NewButton("Cancel", v.cancel)

	v.form = v.createForm()
	buttons := container.NewHBox(v.applyButton, v.cancelButton)

	v.window = fyne.CurrentApp().NewWindow(Title)
	v.window.SetContent(container.NewVBox(v.form, buttons))
	v.window.SetOnClosed(v.markClosed)
	return v, nil
}

func (v *View) Show() {
	v.window.Show()
}

func (v *View) Window() fyne.Window {
	return v.window
}

func (v *View) Closed() bool {
	return v.closed
}

// Snapshot reads the form back into a Config. Fields with no selection keep
// their original value, and a timeout that was unset and still shows 0
// stays unset.
func (v *View) Snapshot() connection.Config {
	out := v.initial.Clone()

	if i := v.baudRate.SelectedIndex(); i >= 0 {
		out.BaudRate = connection.BaudRates[i]
	}
	if i := v.byteSize.SelectedIndex(); i >= 0 {
		out.ByteSize = connection.ByteSizes[i]
	}
	if i := v.parity.SelectedIndex(); i >= 0 {
		out.Parity = connection.Parities[i]
	}
	if i := v.stopBits.SelectedIndex(); i >= 0 {
		out.StopBits = connection.StopBitsValues[i]
	}

	out.ReadTimeout = timeoutValue(v.initial.ReadTimeout, v.readTimeout.Value())
	out.WriteTimeout = timeoutValue(v.initial.WriteTimeout, v.writeTimeout.Value())
	out.InterByteTimeout = timeoutValue(v.initial.InterByteTimeout, v.interByteTimeout.Value())

	out.XonXoff = v.softwareFlow.Value()
	out.RtsCts = v.rtsCts.Value()
	out.DsrDtr = v.dsrDtr.Value()
	return out
}

func (v *View) createForm() *widget.Form {
	return widget.NewForm(
		widget.NewFormItem("Port", v.portEntry),
		widget.NewFormItem("Status", v.statusEntry),
		widget.NewFormItem("Baud Rate", v.baudRate),
		widget.NewFormItem("Byte Size", v.byteSize),
		widget.NewFormItem("Parity", v.parity),
		widget.NewFormItem("Stop Bits", v.stopBits),
		widget.NewFormItem("Read Timeout", v.readTimeout),
		widget.NewFormItem("Write Timeout", v.writeTimeout),
		widget.NewFormItem("Inter-Byte Timeout", v.interByteTimeout),
		widget.NewFormItem("Software Flow Control", v.softwareFlow.Select),
		widget.NewFormItem("Flow Control: RTS/CTS", v.rtsCts.Select),
		widget.NewFormItem("Flow Control: DSR/DTR", v.dsrDtr.Select),
	)
}

func (v *View) createPortEntry(port string) {
	v.portEntry = widget.NewEntry()
	v.portEntry.SetText(port)
	v.portEntry.Disable()
}

func (v *View) createStatusEntry(open bool) {
	status := StatusClosed
	if open {
		status = StatusOpened
	}
	v.statusEntry = widget.NewEntry()
	v.statusEntry.SetText(status)
	v.statusEntry.Disable()
}

func (v *View) apply() {
	if v.onApply != nil {
		if err := v.onApply(v.Snapshot()); err != nil {
			log.Println("apply settings:", err)
			dialog.ShowError(err, v.window)
			return
		}
	}
	v.close()
}

func (v *View) cancel() {
	v.close()
}

func (v *View) close() {
	v.markClosed()
	v.window.Close()
}

func (v *View) markClosed() {
	if v.closed {
		return
	}
	v.closed = true
	if v.onClosed != nil {
		v.onClosed()
	}
}

// newChoice selects the option equal to current. When nothing matches the
// select is left empty.
func newChoice(options []string, current string) *widget.Select {
	sel := widget.NewSelect(options, nil)
	for i, opt := range options {
		if opt == current {
			sel.SetSelectedIndex(i)
			break
		}
	}
	return sel
}

// newTimeoutSpinner shows an unset timeout as 0.
func newTimeoutSpinner(t *int) *Spinner {
	s := NewSpinner(0, 1, "s")
	if t != nil {
		s.SetValue(*t)
	}
	return s
}

func timeoutValue(orig *int, shown int) *int {
	if orig == nil && shown == 0 {
		return nil
	}
	return connection.Seconds(shown)
}

func intOptions(values []int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(v)
	}
	return out
}

func parityOptions() []string {
	out := make([]string, len(connection.Parities))
	for i, p := range connection.Parities {
		out[i] = string(p)
	}
	return out
}

func stopBitsOptions() []string {
	out := make([]string, len(connection.StopBitsValues))
	for i, s := range connection.StopBitsValues {
		out[i] = s.String()
	}
	return out
}
