// Package keypad decodes a 4x4 matrix keypad.
//
// A key press pulls one row line low and raises an edge on it. The servicing
// task then scans the columns of that row to find which key closed the circuit.
package keypad

// Size of the matrix.
const (
	RowCount = 4
	ColCount = 4
)

var layout = [RowCount][ColCount]rune{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// Decode returns the key at (row, col), both counted from 0.
func Decode(row, col int) (rune, bool) {
	if row < 0 || row >= RowCount || col < 0 || col >= ColCount {
		return 0, false
	}
	return layout[row][col], true
}

// Scanner finds the pressed column on a row that raised an edge.
type Scanner interface {
	// Scan returns the pressed column on row, or ok=false if the key was
	// already released (a bounce or a very short press).
	Scan(row int) (col int, ok bool, err error)
}

// FakeScanner is a test double mapping rows to pressed columns.
type FakeScanner struct {
	// Pressed maps row to the column currently held down.
	Pressed map[int]int

	// ScanError, if set, is returned by Scan.
	ScanError error
}

// Scan returns the scripted column for row.
func (f *FakeScanner) Scan(row int) (int, bool, error) {
	if f.ScanError != nil {
		return 0, false, f.ScanError
	}
	col, ok := f.Pressed[row]
	return col, ok, nil
}
