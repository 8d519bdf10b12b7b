package headlessterm

// UnderlineStyle enumerates the underline variants SGR can select.
type UnderlineStyle uint8

const (
	UnderlineNone UnderlineStyle = iota
	UnderlineSingle
	UnderlineDouble
	UnderlineCurly
	UnderlineDotted
	UnderlineDashed
)

// Link is an OSC 8 hyperlink attached to a cell.
type Link struct {
	ID  string
	URI string
}

// Style is the set of rendition attributes a cell carries, and also the
// state SGR sequences accumulate into for newly printed cells.
type Style struct {
	FG        Color
	BG        Color
	Underline UnderlineStyle
	// UnderlineColor follows FG while default.
	UnderlineColor Color

	Bold    bool
	Faint   bool
	Italic  bool
	Blink   bool
	Inverse bool
	Hidden  bool
	Strike  bool

	Link *Link
}

// IsDefault reports whether s carries no rendition at all.
func (s Style) IsDefault() bool {
	return s == Style{}
}

// Cell is one grid position: a rune, its display width, and its style.
// Width 2 marks the head of a wide character; the position to its right
// holds a width-0 continuation cell with rune 0.
type Cell struct {
	Rune  rune
	Width uint8
	Style Style
}

// blankCell is what erasure and fresh rows produce. Erased cells keep the
// erasing style's background so background-color erase behaves like xterm.
func blankCell(s Style) Cell {
	return Cell{Rune: ' ', Width: 1, Style: Style{BG: s.BG}}
}

// IsContinuation reports whether c is the trailing half of a wide pair.
func (c Cell) IsContinuation() bool {
	return c.Width == 0 && c.Rune == 0
}

// IsWide reports whether c is the head of a wide pair.
func (c Cell) IsWide() bool {
	return c.Width == 2
}

// Line is one screen row. Wrapped marks a row whose content overflowed
// into the row below it, so copy and reflow can rejoin the pieces.
type Line struct {
	Cells   []Cell
	Wrapped bool
}

func blankLine(cols int) Line {
	cells := make([]Cell, cols)
	for i := range cells {
		cells[i] = blankCell(Style{})
	}
	return Line{Cells: cells}
}

// clone deep-copies a line so the copy survives later screen mutation.
func (l Line) clone() Line {
	cells := make([]Cell, len(l.Cells))
	copy(cells, l.Cells)
	return Line{Cells: cells, Wrapped: l.Wrapped}
}

// Text flattens a line to its runes, skipping wide-pair continuations and
// trimming trailing blanks.
func (l Line) Text() string {
	runes := make([]rune, 0, len(l.Cells))
	for _, c := range l.Cells {
		if c.IsContinuation() {
			continue
		}
		runes = append(runes, c.Rune)
	}
	end := len(runes)
	for end > 0 && runes[end-1] == ' ' {
		end--
	}
	return string(runes[:end])
}
