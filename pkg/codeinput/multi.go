package codeinput

// MultiField models the six-cell input row: each cell holds at most one
// digit and focus advances automatically as the user types. The focused
// index is part of the model so clients can mirror it without re-deriving
// the rules.
type MultiField struct {
	cells   [Length]byte // 0 means empty
	focused int
}

// NewMultiField returns an empty row with focus on the first cell.
func NewMultiField() *MultiField {
	return &MultiField{}
}

// Focused returns the index of the cell that receives the next keystroke.
func (f *MultiField) Focused() int { return f.focused }

// Focus moves focus to cell i, clamped to the row.
func (f *MultiField) Focus(i int) {
	if i < 0 {
		i = 0
	}
	if i >= Length {
		i = Length - 1
	}
	f.focused = i
}

// Type handles one keystroke at the focused cell. A digit fills the cell
// and advances focus; focus stays on the last cell once the row is full.
// Anything else is ignored.
func (f *MultiField) Type(r rune) {
	if r < '0' || r > '9' {
		return
	}

	f.cells[f.focused] = byte(r)
	if f.focused < Length-1 {
		f.focused++
	}
}

// Backspace clears the focused cell if it holds a digit, otherwise it
// moves focus back one cell and clears that. On an empty row it is a
// no-op.
func (f *MultiField) Backspace() {
	if f.cells[f.focused] != 0 {
		f.cells[f.focused] = 0
		return
	}
	if f.focused == 0 {
		return
	}
	f.focused--
	f.cells[f.focused] = 0
}

// Paste distributes sanitized digits across the cells from the start of
// the row, matching the common clipboard flow on code inputs. Focus lands
// on the cell after the last pasted digit.
func (f *MultiField) Paste(raw string) {
	digits := Sanitize(raw)
	f.Clear()
	for i := 0; i < len(digits); i++ {
		f.cells[i] = digits[i]
	}
	f.Focus(len(digits))
}

// Value concatenates the filled prefix of the row. An empty cell ends the
// candidate: holes in the middle are not representable in a code, so only
// the digits before the first gap count.
func (f *MultiField) Value() string {
	out := make([]byte, 0, Length)
	for _, c := range f.cells {
		if c == 0 {
			break
		}
		out = append(out, c)
	}
	return string(out)
}

// Complete reports whether every cell holds a digit.
func (f *MultiField) Complete() bool {
	for _, c := range f.cells {
		if c == 0 {
			return false
		}
	}
	return true
}

// Clear empties every cell and returns focus to the first one.
func (f *MultiField) Clear() {
	f.cells = [Length]byte{}
	f.focused = 0
}
