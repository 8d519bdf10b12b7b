package headlessterm

import "sort"

// Screen is one 2-D grid of cells: the primary screen with its scrollback,
// or the alternate screen without one. It owns the scroll region, the tab
// stops, and the dirty-row set the renderer drains.
//
// All coordinates are 0-based. The scroll region is inclusive on both
// ends. Rows enter the dirty set on any mutation and leave it only through
// ClearDirty.
type Screen struct {
	cols, rows int
	lines      []Line
	history    *lineRing

	// Scroll region, inclusive.
	top, bottom int

	tabs  map[int]bool
	dirty map[int]bool
}

func newScreen(cols, rows, scrollback int) *Screen {
	s := &Screen{
		cols:    cols,
		rows:    rows,
		lines:   make([]Line, rows),
		history: newLineRing(scrollback),
		bottom:  rows - 1,
		tabs:    make(map[int]bool),
		dirty:   make(map[int]bool),
	}
	for r := range s.lines {
		s.lines[r] = blankLine(cols)
	}
	s.resetTabs()
	s.markAllDirty()
	return s
}

// Line returns the row at r, or an empty line when out of range. The
// returned value aliases screen storage; callers that keep it must clone.
func (s *Screen) Line(r int) Line {
	if r < 0 || r >= s.rows {
		return Line{}
	}
	return s.lines[r]
}

func (s *Screen) cell(r, c int) *Cell {
	if r < 0 || r >= s.rows || c < 0 || c >= s.cols {
		return nil
	}
	return &s.lines[r].Cells[c]
}

// setWrapped flags row r as overflowing into the row below.
func (s *Screen) setWrapped(r int, wrapped bool) {
	if r < 0 || r >= s.rows {
		return
	}
	if s.lines[r].Wrapped != wrapped {
		s.lines[r].Wrapped = wrapped
		s.dirty[r] = true
	}
}

// put writes a cell at (r, c), dissolving any wide pair it lands on and
// laying down the continuation half when the new cell is wide.
func (s *Screen) put(r, c int, cell Cell) {
	target := s.cell(r, c)
	if target == nil {
		return
	}

	// Writing over half of a wide pair clears the other half.
	if target.IsContinuation() {
		if head := s.cell(r, c-1); head != nil && head.IsWide() {
			*head = blankCell(head.Style)
		}
	} else if target.IsWide() {
		if cont := s.cell(r, c+1); cont != nil && cont.IsContinuation() {
			*cont = blankCell(cont.Style)
		}
	}

	*target = cell
	if cell.IsWide() {
		if cont := s.cell(r, c+1); cont != nil {
			if cont.IsWide() {
				// The continuation lands on another pair's head.
				if far := s.cell(r, c+2); far != nil && far.IsContinuation() {
					*far = blankCell(far.Style)
				}
			}
			*cont = Cell{Style: cell.Style}
		}
	}
	s.dirty[r] = true
}

// clearRange blanks columns [from, to) of row r with the given style's
// background, splitting any wide pair that straddles a boundary.
func (s *Screen) clearRange(r, from, to int, style Style) {
	if r < 0 || r >= s.rows {
		return
	}
	if from < 0 {
		from = 0
	}
	if to > s.cols {
		to = s.cols
	}
	if from >= to {
		return
	}
	if from > 0 {
		if first := s.cell(r, from); first != nil && first.IsContinuation() {
			*s.cell(r, from-1) = blankCell(style)
		}
	}
	if to < s.cols {
		if last := s.cell(r, to-1); last != nil && last.IsWide() {
			*s.cell(r, to) = blankCell(style)
		}
	}
	for c := from; c < to; c++ {
		s.lines[r].Cells[c] = blankCell(style)
	}
	s.dirty[r] = true
}

// clearRows blanks whole rows [from, to) and drops their wrap flags.
func (s *Screen) clearRows(from, to int, style Style) {
	for r := from; r < to && r < s.rows; r++ {
		if r < 0 {
			continue
		}
		s.clearRange(r, 0, s.cols, style)
		s.lines[r].Wrapped = false
	}
}

// insertCells shifts row r right by n starting at column c, dropping what
// falls off the end. The freed columns become blanks.
func (s *Screen) insertCells(r, c, n int, style Style) {
	if r < 0 || r >= s.rows || c < 0 || c >= s.cols {
		return
	}
	if n > s.cols-c {
		n = s.cols - c
	}
	row := s.lines[r].Cells
	copy(row[c+n:], row[c:])
	for i := c; i < c+n; i++ {
		row[i] = blankCell(style)
	}
	s.dropOrphans(r)
	s.dirty[r] = true
}

// deleteCells removes n cells at (r, c), shifting the remainder left and
// back-filling with blanks.
func (s *Screen) deleteCells(r, c, n int, style Style) {
	if r < 0 || r >= s.rows || c < 0 || c >= s.cols {
		return
	}
	if n > s.cols-c {
		n = s.cols - c
	}
	row := s.lines[r].Cells
	copy(row[c:], row[c+n:])
	for i := s.cols - n; i < s.cols; i++ {
		row[i] = blankCell(style)
	}
	s.dropOrphans(r)
	s.dirty[r] = true
}

// dropOrphans blanks any continuation whose wide head is gone and any
// wide head whose continuation is gone, after a shift split a pair.
func (s *Screen) dropOrphans(r int) {
	row := s.lines[r].Cells
	for c := range row {
		if row[c].IsContinuation() {
			if c == 0 || !row[c-1].IsWide() {
				row[c] = blankCell(row[c].Style)
			}
		} else if row[c].IsWide() {
			if c+1 >= len(row) || !row[c+1].IsContinuation() {
				row[c] = blankCell(row[c].Style)
			}
		}
	}
}

// scrollUp moves the scroll region up by n lines. Lines leaving the top
// are preserved in history only when the region spans the whole screen;
// a restricted region drops them.
func (s *Screen) scrollUp(n int, style Style) {
	span := s.bottom - s.top + 1
	if n <= 0 {
		return
	}
	if n > span {
		n = span
	}
	if s.history != nil && s.top == 0 && s.bottom == s.rows-1 {
		for i := 0; i < n; i++ {
			s.history.push(s.lines[s.top+i])
		}
	}
	for r := s.top; r+n <= s.bottom; r++ {
		s.lines[r] = s.lines[r+n]
	}
	for r := s.bottom - n + 1; r <= s.bottom; r++ {
		s.lines[r] = blankLine(s.cols)
		if !style.IsDefault() {
			s.clearRange(r, 0, s.cols, style)
		}
	}
	s.markRegionDirty()
}

// scrollDown moves the scroll region down by n lines, dropping lines off
// the region bottom.
func (s *Screen) scrollDown(n int, style Style) {
	span := s.bottom - s.top + 1
	if n <= 0 {
		return
	}
	if n > span {
		n = span
	}
	for r := s.bottom; r-n >= s.top; r-- {
		s.lines[r] = s.lines[r-n]
	}
	for r := s.top; r < s.top+n; r++ {
		s.lines[r] = blankLine(s.cols)
		if !style.IsDefault() {
			s.clearRange(r, 0, s.cols, style)
		}
	}
	s.markRegionDirty()
}

// insertLines opens n blank lines at row at, pushing the rows below it
// toward the region bottom. No-op outside the scroll region.
func (s *Screen) insertLines(at, n int, style Style) {
	if at < s.top || at > s.bottom {
		return
	}
	saveTop := s.top
	s.top = at
	s.scrollDown(n, style)
	s.top = saveTop
}

// deleteLines removes n lines at row at, pulling the rows below it up and
// opening blanks at the region bottom. No-op outside the scroll region.
func (s *Screen) deleteLines(at, n int, style Style) {
	if at < s.top || at > s.bottom {
		return
	}
	saveTop := s.top
	s.top = at
	s.scrollUp(n, style)
	s.top = saveTop
}

// setRegion installs a scroll region (inclusive bounds). Degenerate
// regions are rejected.
func (s *Screen) setRegion(top, bottom int) bool {
	if top < 0 {
		top = 0
	}
	if bottom >= s.rows || bottom < 0 {
		bottom = s.rows - 1
	}
	if top >= bottom {
		return false
	}
	s.top, s.bottom = top, bottom
	return true
}

func (s *Screen) resetRegion() {
	s.top, s.bottom = 0, s.rows-1
}

// --- Tab stops ---

func (s *Screen) resetTabs() {
	s.tabs = make(map[int]bool)
	for c := 8; c < s.cols; c += 8 {
		s.tabs[c] = true
	}
}

func (s *Screen) setTab(c int)   { s.tabs[c] = true }
func (s *Screen) clearTab(c int) { delete(s.tabs, c) }
func (s *Screen) clearAllTabs()  { s.tabs = make(map[int]bool) }

// nextTab returns the first stop right of col, or cols-1 when none.
func (s *Screen) nextTab(col int) int {
	for c := col + 1; c < s.cols; c++ {
		if s.tabs[c] {
			return c
		}
	}
	return s.cols - 1
}

// prevTab returns the first stop left of col, or 0 when none.
func (s *Screen) prevTab(col int) int {
	for c := col - 1; c > 0; c-- {
		if s.tabs[c] {
			return c
		}
	}
	return 0
}

// TabStops lists the active stops in ascending order.
func (s *Screen) TabStops() []int {
	out := make([]int, 0, len(s.tabs))
	for c := range s.tabs {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// --- Dirty tracking ---

func (s *Screen) markDirty(r int) {
	if r >= 0 && r < s.rows {
		s.dirty[r] = true
	}
}

func (s *Screen) markRegionDirty() {
	for r := s.top; r <= s.bottom; r++ {
		s.dirty[r] = true
	}
}

func (s *Screen) markAllDirty() {
	for r := 0; r < s.rows; r++ {
		s.dirty[r] = true
	}
}

// DirtyRows returns the rows touched since the last ClearDirty, ascending.
func (s *Screen) DirtyRows() []int {
	out := make([]int, 0, len(s.dirty))
	for r := range s.dirty {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

func (s *Screen) ClearDirty() {
	s.dirty = make(map[int]bool)
}

// resize regrows the grid to cols x rows. Width changes truncate or pad
// each row; when the height shrinks, rows are evicted from the top into
// history (so the cursor-relative view is preserved) and the caller is
// told how many via the return value. The scroll region resets and every
// row becomes dirty.
func (s *Screen) resize(cols, rows int) (evicted int) {
	if cols == s.cols && rows == s.rows {
		s.markAllDirty()
		return 0
	}

	if cols != s.cols {
		for r := range s.lines {
			cells := make([]Cell, cols)
			n := copy(cells, s.lines[r].Cells)
			for i := n; i < cols; i++ {
				cells[i] = blankCell(Style{})
			}
			// A wide head cut off at the new edge loses its pair.
			if n > 0 && cells[n-1].IsWide() {
				cells[n-1] = blankCell(cells[n-1].Style)
			}
			s.lines[r].Cells = cells
		}
		s.cols = cols
	}

	if rows < s.rows {
		evicted = s.rows - rows
		for i := 0; i < evicted; i++ {
			if s.history != nil {
				s.history.push(s.lines[i])
			}
		}
		s.lines = s.lines[evicted:]
	} else if rows > s.rows {
		for i := s.rows; i < rows; i++ {
			s.lines = append(s.lines, blankLine(cols))
		}
	}
	s.rows = rows

	s.resetRegion()
	s.resetTabs()
	s.dirty = make(map[int]bool)
	s.markAllDirty()
	return evicted
}
