package settings

import (
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Spinner is an integer entry with step buttons and a unit suffix.
// Values below Min are never accepted.
type Spinner struct {
	widget.BaseWidget

	Min    int
	Step   int
	Suffix string

	OnChanged func(int)

	value    int
	updating bool

	entry *spinnerEntry
	down  *widget.Button
	up    *widget.Button
}

func NewSpinner(min, step int, suffix string) *Spinner {
	s := &Spinner{Min: min, Step: step, Suffix: suffix, value: min}

	s.entry = newSpinnerEntry(s.render)
	s.entry.OnChanged = s.parse
	s.entry.OnSubmitted = func(string) { s.render() }
	s.down = widget.NewButtonWithIcon("", theme.ContentRemoveIcon(), s.Decrement)
	s.up = widget.NewButtonWithIcon("", theme.ContentAddIcon(), s.Increment)

	s.ExtendBaseWidget(s)
	s.render()
	return s
}

func (s *Spinner) Value() int {
	return s.value
}

// SetValue clamps v to Min and updates the displayed text.
func (s *Spinner) SetValue(v int) {
	if v < s.Min {
		v = s.Min
	}
	changed := v != s.value
	s.value = v
	s.render()
	if changed && s.OnChanged != nil {
		s.OnChanged(v)
	}
}

func (s *Spinner) Increment() {
	s.SetValue(s.value + s.Step)
}

func (s *Spinner) Decrement() {
	s.SetValue(s.value - s.Step)
}

// Text is what the user currently sees, suffix included.
func (s *Spinner) Text() string {
	return s.entry.Text
}

func (s *Spinner) CreateRenderer() fyne.WidgetRenderer {
	buttons := container.NewHBox(s.down, s.up)
	return widget.NewSimpleRenderer(container.NewBorder(nil, nil, nil, buttons, s.entry))
}

func (s *Spinner) render() {
	s.updating = true
	s.entry.SetText(strconv.Itoa(s.value) + s.Suffix)
	s.updating = false
}

// parse accepts typed text with or without the suffix. Anything else is
// left in the entry while typing and replaced by the current value on
// submit or focus loss.
func (s *Spinner) parse(text string) {
	if s.updating {
		return
	}
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), s.Suffix))
	v, err := strconv.Atoi(text)
	if err != nil || v < s.Min || v == s.value {
		return
	}
	s.value = v
	if s.OnChanged != nil {
		s.OnChanged(v)
	}
}

// spinnerEntry reports focus loss so the text can be normalized.
type spinnerEntry struct {
	widget.Entry
	onFocusLost func()
}

func newSpinnerEntry(onFocusLost func()) *spinnerEntry {
	e := &spinnerEntry{onFocusLost: onFocusLost}
	e.ExtendBaseWidget(e)
	return e
}

func (e *spinnerEntry) FocusLost() {
	e.Entry.FocusLost()
	if e.onFocusLost != nil {
		e.onFocusLost()
	}
}
