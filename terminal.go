package headlessterm

import (
	"sync"

	"github.com/danielgatis/go-ansicode"
)

// Mode names the switchable terminal behaviors, private DEC modes and ANSI
// modes alike.
type Mode uint8

const (
	// ModeAutoWrap (DECAWM) wraps the cursor to the next row when a
	// printable lands past the right edge.
	ModeAutoWrap Mode = iota
	// ModeCursorVisible (DECTCEM).
	ModeCursorVisible
	// ModeAppCursorKeys (DECCKM) switches arrow keys to SS3 encoding.
	ModeAppCursorKeys
	// ModeOrigin (DECOM) makes row addressing relative to the scroll
	// region top.
	ModeOrigin
	// ModeInsert (IRM) shifts existing cells right on print.
	ModeInsert
	// ModeBracketedPaste wraps pasted text in CSI 200~ / 201~.
	ModeBracketedPaste
	// ModeAltScreen reports whether the alternate screen is active.
	ModeAltScreen
	// ModeReverseVideo (DECSCNM).
	ModeReverseVideo
	// ModeBlinkCursor (att610).
	ModeBlinkCursor
	// ModeLinefeedNewline (LNM) makes LF imply CR.
	ModeLinefeedNewline
	// ModeAppKeypad (DECKPAM).
	ModeAppKeypad
	// Mouse reporting modes 1000/1002/1003 and encodings 1005/1006.
	ModeMouseClicks
	ModeMouseCellMotion
	ModeMouseAllMotion
	ModeMouseUTF8
	ModeMouseSGR
	// ModeFocusReporting (1004).
	ModeFocusReporting
	// ModeAlternateScroll (1007).
	ModeAlternateScroll
	// ModeUrgencyHints (1042).
	ModeUrgencyHints
)

// CursorState is the observable cursor: position, visibility, blink, and
// shape. Col may rest at Cols when a print filled the last column and
// auto-wrap is deferred until the next printable.
type CursorState struct {
	Row, Col int
	Visible  bool
	Blinking bool
	Shape    CursorShape
}

// CursorShape is the rendered outline DECSCUSR selects.
type CursorShape uint8

const (
	CursorBlock CursorShape = iota
	CursorUnderline
	CursorBar
)

// savedCursor is the DECSC snapshot: position, pending style, charset
// table, and origin mode, per screen.
type savedCursor struct {
	cur      CursorState
	style    Style
	charsets CharsetTable
	origin   bool
}

// Observers is the flat set of optional callbacks the terminal fires as
// it consumes the byte stream. A nil field is skipped. Callbacks run
// synchronously on the Write caller's goroutine and must not call back
// into Write (re-entrant writes are buffered and applied after the outer
// call unwinds).
type Observers struct {
	// Bell fires on BEL.
	Bell func()
	// Title fires on OSC 0/2 with the new window title.
	Title func(title string)
	// Hyperlink fires on OSC 8 when a link opens (empty URI closes it).
	Hyperlink func(uri, id string)
	// Clipboard fires on OSC 52 with the decoded payload.
	Clipboard func(text string)
	// DataOut carries bytes the emulator sends upstream: device status
	// reports, attribute queries, graphics acknowledgements.
	DataOut func(data []byte)
	// Resize fires after the grid has been regrown.
	Resize func(cols, rows int)
	// StateChange fires at most once per Write call, after every other
	// callback, when anything observable mutated.
	StateChange func()
	// WorkingDirectory fires on OSC 7.
	WorkingDirectory func(uri string)
}

// Config sizes a new Terminal. Scrollback is the line capacity of the
// primary screen's history ring; 0 disables it.
type Config struct {
	Cols, Rows int
	Scrollback int
	Observers  Observers
}

// Terminal is the emulator: it decodes the inbound byte stream and keeps
// the screen model the stream describes. One instance owns its screens,
// cursor, modes, charset table, and image store; nothing is shared between
// instances.
//
// Write, Resize, and the accessors are safe for use from one goroutine at
// a time; the decoder's callbacks always run inside Write.
type Terminal struct {
	mu sync.Mutex

	cols, rows int

	primary *Screen
	alt     *Screen
	scr     *Screen // active

	cur   CursorState
	style Style
	saved [2]*savedCursor // primary, alternate

	charsets CharsetTable
	modes    map[Mode]bool

	title      string
	titleStack []string
	workingDir string
	clipboards map[byte][]byte

	palette map[int]Color

	keyboardModes   []ansicode.KeyboardMode
	modifyOtherKeys ansicode.ModifyOtherKeys

	images *ImageManager

	dec *ansicode.Decoder
	obs Observers

	// Re-entrancy defense: a Write issued from inside an observer is
	// buffered here and drained when the outer Write unwinds.
	writing bool
	pending []byte

	changed  bool
	disposed bool
}

var _ ansicode.Handler = (*Terminal)(nil)

// NewTerminal builds an emulator of the configured size. Zero or negative
// dimensions fall back to 80x24.
func NewTerminal(cfg Config) *Terminal {
	if cfg.Cols <= 0 {
		cfg.Cols = 80
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 24
	}
	t := &Terminal{
		cols:     cfg.Cols,
		rows:     cfg.Rows,
		primary:  newScreen(cfg.Cols, cfg.Rows, cfg.Scrollback),
		charsets: newCharsetTable(),
		modes:    defaultModes(),
		palette:  make(map[int]Color),
		images:   NewImageManager(),
		obs:      cfg.Observers,
	}
	t.scr = t.primary
	t.cur = CursorState{Visible: true, Blinking: true}
	t.dec = ansicode.NewDecoder(t)
	return t
}

func defaultModes() map[Mode]bool {
	return map[Mode]bool{
		ModeAutoWrap:      true,
		ModeCursorVisible: true,
	}
}

// Write feeds inbound PTY bytes through the decoder. It always reports
// the full length consumed; malformed input is absorbed, never surfaced.
// A call made while another Write is still on the stack (i.e. from an
// observer) is deferred until the outer call finishes.
func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return len(p), nil
	}
	if t.writing {
		t.pending = append(t.pending, p...)
		t.mu.Unlock()
		return len(p), nil
	}
	t.writing = true
	t.mu.Unlock()

	t.dec.Write(p)
	for {
		t.mu.Lock()
		buffered := t.pending
		t.pending = nil
		if len(buffered) == 0 {
			t.writing = false
			fire := t.changed
			t.changed = false
			t.mu.Unlock()
			if fire && t.obs.StateChange != nil {
				t.obs.StateChange()
			}
			return len(p), nil
		}
		t.mu.Unlock()
		t.dec.Write(buffered)
	}
}

// WriteString feeds a string through Write.
func (t *Terminal) WriteString(s string) (int, error) {
	return t.Write([]byte(s))
}

// touch records that observable state mutated, so the coalesced
// StateChange observer fires when the enclosing Write returns.
func (t *Terminal) touch() {
	t.changed = true
}

// emit hands response bytes to the DataOut observer.
func (t *Terminal) emit(data []byte) {
	if t.obs.DataOut != nil {
		t.obs.DataOut(data)
	}
}

func (t *Terminal) emitString(s string) {
	t.emit([]byte(s))
}

// --- Observable state ---

// Cols returns the grid width.
func (t *Terminal) Cols() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cols
}

// Rows returns the grid height.
func (t *Terminal) Rows() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rows
}

// Cursor returns the current cursor state.
func (t *Terminal) Cursor() CursorState {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.cur
	c.Visible = t.modes[ModeCursorVisible]
	return c
}

// Line returns a deep copy of row r of the active screen.
func (t *Terminal) Line(r int) Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scr.Line(r).clone()
}

// RowText returns row r as text, trailing blanks trimmed.
func (t *Terminal) RowText(r int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scr.Line(r).Text()
}

// Text renders the whole active screen, one row per line, trailing blank
// rows trimmed.
func (t *Terminal) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows := make([]string, t.rows)
	last := -1
	for r := 0; r < t.rows; r++ {
		rows[r] = t.scr.Line(r).Text()
		if rows[r] != "" {
			last = r
		}
	}
	out := ""
	for r := 0; r <= last; r++ {
		if r > 0 {
			out += "\n"
		}
		out += rows[r]
	}
	return out
}

// Mode reports whether a mode is set.
func (t *Terminal) Mode(m Mode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.modes[m]
}

// SetTerminalMode flips a mode from the embedding application rather than
// the byte stream; alternate-screen transitions go through the same path
// the decoder uses.
func (t *Terminal) SetTerminalMode(m Mode, on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applyMode(m, on)
}

// DirtyRows returns the rows of the active screen touched since the last
// ClearDirtyRows, in ascending order.
func (t *Terminal) DirtyRows() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scr.DirtyRows()
}

// ClearDirtyRows empties the dirty set, typically after a render pass.
func (t *Terminal) ClearDirtyRows() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scr.ClearDirty()
}

// TabStops returns the active tab stop columns, ascending.
func (t *Terminal) TabStops() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scr.TabStops()
}

// SetTabStop places a tab stop at the given column.
func (t *Terminal) SetTabStop(col int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if col >= 0 && col < t.cols {
		t.scr.setTab(col)
	}
}

// ClearTabStop removes the stop at the given column; a negative column
// clears every stop.
func (t *Terminal) ClearTabStop(col int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if col < 0 {
		t.scr.clearAllTabs()
		return
	}
	t.scr.clearTab(col)
}

// ScrollRegion returns the active scroll region, 0-based inclusive.
func (t *Terminal) ScrollRegion() (top, bottom int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scr.top, t.scr.bottom
}

// Title returns the window title set by OSC 0/2.
func (t *Terminal) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

// WorkingDir returns the last OSC 7 working-directory URI.
func (t *Terminal) WorkingDir() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.workingDir
}

// Images exposes the image store for renderers.
func (t *Terminal) Images() *ImageManager {
	return t.images
}

// IsAltScreen reports whether the alternate screen is active.
func (t *Terminal) IsAltScreen() bool {
	return t.Mode(ModeAltScreen)
}

// --- Scrollback and viewport ---

// ScrollbackLen returns how many lines the primary history holds.
func (t *Terminal) ScrollbackLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.primary.history.len()
}

// ScrollbackLine returns history line i, oldest first.
func (t *Terminal) ScrollbackLine(i int) Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.primary.history.at(i).clone()
}

// ViewportOffset is the absolute row index of the top of the visible
// screen: everything below it is on screen, everything above in history.
func (t *Terminal) ViewportOffset() int {
	return t.ScrollbackLen()
}

// ViewportRowToAbsolute converts a screen row to an absolute row index
// spanning history plus screen.
func (t *Terminal) ViewportRowToAbsolute(row int) int {
	return t.ScrollbackLen() + row
}

// AbsoluteRowToViewport converts an absolute row back to a screen row,
// or -1 when it lives in history or past the bottom.
func (t *Terminal) AbsoluteRowToViewport(absRow int) int {
	offset := t.ScrollbackLen()
	t.mu.Lock()
	rows := t.rows
	t.mu.Unlock()

	row := absRow - offset
	if row < 0 || row >= rows {
		return -1
	}
	return row
}

// --- Lifecycle ---

// Resize regrows both screens to cols x rows. On the primary screen a
// height shrink evicts top rows into scrollback and the cursor follows
// its content. The scroll region resets and every row becomes dirty.
func (t *Terminal) Resize(cols, rows int) {
	if cols <= 0 || rows <= 0 {
		return
	}
	t.mu.Lock()
	if cols == t.cols && rows == t.rows {
		t.mu.Unlock()
		return
	}
	evicted := t.scr.resize(cols, rows)
	if t.alt != nil && t.alt != t.scr {
		t.alt.resize(cols, rows)
	}
	if t.primary != t.scr {
		t.primary.resize(cols, rows)
	}
	t.cols, t.rows = cols, rows
	t.cur.Row = clamp(t.cur.Row-evicted, 0, rows-1)
	t.cur.Col = clamp(t.cur.Col, 0, cols)
	t.touch()
	t.mu.Unlock()

	if t.obs.Resize != nil {
		t.obs.Resize(cols, rows)
	}
}

// Reset returns every piece of state to what a freshly constructed
// terminal of the same dimensions would hold.
func (t *Terminal) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
}

func (t *Terminal) reset() {
	t.scr = t.primary
	t.alt = nil
	t.scr.clearRows(0, t.rows, Style{})
	t.scr.resetRegion()
	t.scr.resetTabs()
	t.scr.markAllDirty()

	t.cur = CursorState{Visible: true, Blinking: true}
	t.style = Style{}
	t.saved = [2]*savedCursor{}
	t.charsets.Reset()
	t.modes = defaultModes()
	t.palette = make(map[int]Color)
	t.keyboardModes = nil
	t.modifyOtherKeys = 0
	t.primary.history.clear()
	t.title = ""
	t.titleStack = nil
	t.workingDir = ""
	t.clipboards = nil
	t.images.Dispose()
	t.images.mu.Lock()
	t.images.nextImage, t.images.nextPlacement = 0, 0
	t.images.mu.Unlock()
	t.touch()
}

// Dispose releases the image store. Further writes are ignored; a second
// Dispose is a no-op.
func (t *Terminal) Dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return
	}
	t.disposed = true
	t.images.Dispose()
}

// --- Internal helpers shared by the handler methods ---

// activeSaved returns the saved-cursor slot for the active screen.
func (t *Terminal) activeSaved() **savedCursor {
	if t.scr == t.alt {
		return &t.saved[1]
	}
	return &t.saved[0]
}

// originRow maps a decoder row to an absolute row: relative to the region
// top and confined to the region under DECOM.
func (t *Terminal) originRow(row int) int {
	if t.modes[ModeOrigin] {
		return clamp(t.scr.top+row, t.scr.top, t.scr.bottom)
	}
	return clamp(row, 0, t.rows-1)
}

// homeCursor moves to the origin, honoring DECOM.
func (t *Terminal) homeCursor() {
	t.cur.Col = 0
	if t.modes[ModeOrigin] {
		t.cur.Row = t.scr.top
	} else {
		t.cur.Row = 0
	}
}

// moveCursor relocates the cursor, marking both touched rows so a renderer
// repaints the cursor overlay.
func (t *Terminal) moveCursor(row, col int) {
	if row != t.cur.Row {
		t.scr.markDirty(t.cur.Row)
		t.scr.markDirty(row)
	}
	t.cur.Row = row
	t.cur.Col = col
	t.touch()
}

// linefeed advances one row, scrolling the region when the cursor sits on
// its bottom line. Rows leave to history only from a full-screen region.
func (t *Terminal) linefeed() {
	if t.cur.Row == t.scr.bottom {
		t.scr.scrollUp(1, t.style)
	} else if t.cur.Row < t.rows-1 {
		t.cur.Row++
	}
	t.touch()
}

// applyMode flips a mode and performs its side effects. Caller holds the
// lock.
func (t *Terminal) applyMode(m Mode, on bool) {
	if m == ModeAltScreen {
		if on {
			t.enterAltScreen()
		} else {
			t.exitAltScreen()
		}
		return
	}
	t.modes[m] = on
	switch m {
	case ModeOrigin:
		t.homeCursor()
	case ModeCursorVisible, ModeReverseVideo:
		t.scr.markAllDirty()
	}
	t.touch()
}

// enterAltScreen saves the primary cursor and switches to a cleared
// alternate screen, as mode 1049 specifies. The primary grid and its
// scrollback stay untouched until exit.
func (t *Terminal) enterAltScreen() {
	if t.scr == t.alt && t.alt != nil {
		return
	}
	t.saved[0] = &savedCursor{
		cur:      t.cur,
		style:    t.style,
		charsets: t.charsets,
		origin:   t.modes[ModeOrigin],
	}
	t.alt = newScreen(t.cols, t.rows, 0)
	t.scr = t.alt
	t.modes[ModeAltScreen] = true
	t.cur.Row, t.cur.Col = 0, 0
	t.touch()
}

// exitAltScreen returns to the primary screen and restores the saved
// cursor state.
func (t *Terminal) exitAltScreen() {
	if t.scr != t.alt || t.alt == nil {
		return
	}
	t.scr = t.primary
	t.alt = nil
	t.modes[ModeAltScreen] = false
	if sc := t.saved[0]; sc != nil {
		t.cur = sc.cur
		t.style = sc.style
		t.charsets = sc.charsets
		t.modes[ModeOrigin] = sc.origin
	}
	t.scr.markAllDirty()
	t.touch()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
