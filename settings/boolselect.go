package settings

import "fyne.io/fyne/v2/widget"

var boolOptions = []string{"True", "False"}

// BoolSelect is a two-option select backed by a bool. The captions are
// display only.
type BoolSelect struct {
	*widget.Select
}

func NewBoolSelect(value bool, changed func(bool)) *BoolSelect {
	b := &BoolSelect{Select: widget.NewSelect(boolOptions, nil)}
	b.SetValue(value)
	if changed != nil {
		b.OnChanged = func(string) { changed(b.Value()) }
	}
	return b
}

func (b *BoolSelect) Value() bool {
	return b.SelectedIndex() == 0
}

func (b *BoolSelect) SetValue(v bool) {
	if v {
		b.SetSelectedIndex(0)
	} else {
		b.SetSelectedIndex(1)
	}
}
