package headlessterm

import (
	"encoding/base64"
	"fmt"
	"image/color"

	"github.com/danielgatis/go-ansicode"
)

// This file is the executor: the ansicode decoder parses the byte stream
// and calls back into these methods, which apply each operation to the
// active screen. Out-of-range parameters clamp; unknown input is dropped.
// Nothing here returns an error, mirroring how a hardware terminal absorbs
// hostile output.

// Input places one printable rune at the cursor.
func (t *Terminal) Input(r rune) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.print(r)
}

func (t *Terminal) print(r rune) {
	r = t.charsets.Map(r)
	w := runeWidth(r)
	if w <= 0 {
		// Combining marks and other zero-width input are not modeled.
		return
	}

	if t.cur.Col+w > t.cols {
		if t.modes[ModeAutoWrap] {
			t.scr.setWrapped(t.cur.Row, true)
			t.cur.Col = 0
			t.linefeed()
		} else {
			// No wrap: keep overwriting at the right edge.
			t.cur.Col = t.cols - w
		}
	}

	if t.modes[ModeInsert] {
		t.scr.insertCells(t.cur.Row, t.cur.Col, w, t.style)
	}

	t.scr.put(t.cur.Row, t.cur.Col, Cell{Rune: r, Width: uint8(w), Style: t.style})
	t.cur.Col += w
	if t.cur.Col > t.cols {
		t.cur.Col = t.cols
	}
	t.touch()
}

// --- C0 and simple escapes ---

// Bell notifies the bell observer.
func (t *Terminal) Bell() {
	if t.obs.Bell != nil {
		t.obs.Bell()
	}
}

// Backspace moves one column left, stopping at the margin.
func (t *Terminal) Backspace() {
	t.mu.Lock()
	defer t.mu.Unlock()
	col := clamp(t.cur.Col, 0, t.cols-1)
	if col > 0 {
		col--
	}
	t.moveCursor(t.cur.Row, col)
}

// CarriageReturn moves to column 0.
func (t *Terminal) CarriageReturn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.moveCursor(t.cur.Row, 0)
}

// LineFeed advances one row, scrolling at the region bottom. Under LNM it
// also returns to column 0.
func (t *Terminal) LineFeed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scr.setWrapped(t.cur.Row, false)
	if t.modes[ModeLinefeedNewline] {
		t.cur.Col = 0
	}
	t.linefeed()
}

// ReverseIndex moves one row up, scrolling the region down from its top.
func (t *Terminal) ReverseIndex() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur.Row == t.scr.top {
		t.scr.scrollDown(1, t.style)
	} else if t.cur.Row > 0 {
		t.cur.Row--
	}
	t.touch()
}

// Substitute replaces a cancelled sequence with the replacement character.
func (t *Terminal) Substitute() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.print('�')
}

// --- Cursor motion ---

// Goto addresses the cursor absolutely (0-based from the decoder); under
// origin mode the row is relative to the region top and confined to it.
func (t *Terminal) Goto(row, col int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.moveCursor(t.originRow(row), clamp(col, 0, t.cols-1))
}

// GotoLine moves to a row, keeping the column.
func (t *Terminal) GotoLine(row int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.moveCursor(t.originRow(row), t.cur.Col)
}

// GotoCol moves to a column, keeping the row.
func (t *Terminal) GotoCol(col int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.moveCursor(t.cur.Row, clamp(col, 0, t.cols-1))
}

// MoveUp moves n rows up without scrolling. A cursor inside the scroll
// region stops at its top line.
func (t *Terminal) MoveUp(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursorVertical(-n, false)
}

// MoveDown moves n rows down without scrolling.
func (t *Terminal) MoveDown(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursorVertical(n, false)
}

// MoveUpCr moves n rows up and returns to column 0.
func (t *Terminal) MoveUpCr(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursorVertical(-n, true)
}

// MoveDownCr moves n rows down and returns to column 0.
func (t *Terminal) MoveDownCr(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursorVertical(n, true)
}

func (t *Terminal) cursorVertical(delta int, toColZero bool) {
	lo, hi := 0, t.rows-1
	if delta < 0 && t.cur.Row >= t.scr.top {
		lo = t.scr.top
	}
	if delta > 0 && t.cur.Row <= t.scr.bottom {
		hi = t.scr.bottom
	}
	col := t.cur.Col
	if toColZero {
		col = 0
	}
	t.moveCursor(clamp(t.cur.Row+delta, lo, hi), col)
}

// MoveForward moves n columns right, stopping at the last column.
func (t *Terminal) MoveForward(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.moveCursor(t.cur.Row, clamp(t.cur.Col+n, 0, t.cols-1))
}

// MoveBackward moves n columns left, stopping at column 0. A pending-wrap
// cursor first snaps back onto the last column.
func (t *Terminal) MoveBackward(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	col := clamp(t.cur.Col, 0, t.cols-1)
	t.moveCursor(t.cur.Row, clamp(col-n, 0, t.cols-1))
}

// --- Tab stops ---

// Tab advances to the n-th next tab stop.
func (t *Terminal) Tab(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	col := t.cur.Col
	for i := 0; i < n; i++ {
		col = t.scr.nextTab(col)
	}
	t.moveCursor(t.cur.Row, col)
}

// MoveForwardTabs is CHT: same motion as Tab.
func (t *Terminal) MoveForwardTabs(n int) {
	t.Tab(n)
}

// MoveBackwardTabs backs up to the n-th previous tab stop.
func (t *Terminal) MoveBackwardTabs(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	col := t.cur.Col
	for i := 0; i < n; i++ {
		col = t.scr.prevTab(col)
	}
	t.moveCursor(t.cur.Row, col)
}

// HorizontalTabSet places a stop at the cursor column.
func (t *Terminal) HorizontalTabSet() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scr.setTab(t.cur.Col)
}

// ClearTabs removes the stop under the cursor, or every stop.
func (t *Terminal) ClearTabs(mode ansicode.TabulationClearMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch mode {
	case ansicode.TabulationClearModeCurrent:
		t.scr.clearTab(t.cur.Col)
	case ansicode.TabulationClearModeAll:
		t.scr.clearAllTabs()
	}
}

// --- Erasure, insertion, deletion ---

// ClearLine erases within the cursor row.
func (t *Terminal) ClearLine(mode ansicode.LineClearMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	col := clamp(t.cur.Col, 0, t.cols-1)
	switch mode {
	case ansicode.LineClearModeRight:
		t.scr.clearRange(t.cur.Row, col, t.cols, t.style)
	case ansicode.LineClearModeLeft:
		t.scr.clearRange(t.cur.Row, 0, col+1, t.style)
	case ansicode.LineClearModeAll:
		t.scr.clearRange(t.cur.Row, 0, t.cols, t.style)
	}
	t.touch()
}

// ClearScreen erases screen regions; mode 3 also drops the scrollback.
func (t *Terminal) ClearScreen(mode ansicode.ClearMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	col := clamp(t.cur.Col, 0, t.cols-1)
	switch mode {
	case ansicode.ClearModeBelow:
		t.scr.clearRange(t.cur.Row, col, t.cols, t.style)
		t.scr.clearRows(t.cur.Row+1, t.rows, t.style)
	case ansicode.ClearModeAbove:
		t.scr.clearRows(0, t.cur.Row, t.style)
		t.scr.clearRange(t.cur.Row, 0, col+1, t.style)
	case ansicode.ClearModeAll:
		t.scr.clearRows(0, t.rows, t.style)
	case ansicode.ClearModeSaved:
		t.scr.clearRows(0, t.rows, t.style)
		t.scr.history.clear()
	}
	t.touch()
}

// EraseChars blanks n cells at the cursor without shifting.
func (t *Terminal) EraseChars(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	col := clamp(t.cur.Col, 0, t.cols-1)
	t.scr.clearRange(t.cur.Row, col, col+n, t.style)
	t.touch()
}

// InsertBlank opens n blank cells at the cursor, shifting the rest right.
func (t *Terminal) InsertBlank(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scr.insertCells(t.cur.Row, clamp(t.cur.Col, 0, t.cols-1), n, t.style)
	t.touch()
}

// DeleteChars removes n cells at the cursor, shifting the rest left.
func (t *Terminal) DeleteChars(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scr.deleteCells(t.cur.Row, clamp(t.cur.Col, 0, t.cols-1), n, t.style)
	t.touch()
}

// InsertBlankLines opens n blank rows at the cursor, inside the region.
func (t *Terminal) InsertBlankLines(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scr.insertLines(t.cur.Row, n, t.style)
	t.touch()
}

// DeleteLines removes n rows at the cursor, inside the region.
func (t *Terminal) DeleteLines(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scr.deleteLines(t.cur.Row, n, t.style)
	t.touch()
}

// ScrollUp scrolls the region up n lines.
func (t *Terminal) ScrollUp(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scr.scrollUp(n, t.style)
	t.touch()
}

// ScrollDown scrolls the region down n lines.
func (t *Terminal) ScrollDown(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scr.scrollDown(n, t.style)
	t.touch()
}

// Decaln runs the DEC screen alignment pattern: margins reset, the grid
// fills with E, the cursor homes.
func (t *Terminal) Decaln() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scr.resetRegion()
	for r := 0; r < t.rows; r++ {
		for c := 0; c < t.cols; c++ {
			t.scr.put(r, c, Cell{Rune: 'E', Width: 1})
		}
	}
	t.cur.Row, t.cur.Col = 0, 0
	t.touch()
}

// --- Scroll region, save/restore, reset ---

// SetScrollingRegion installs DECSTBM margins. Parameters arrive 1-based
// inclusive; a zero top means the first row, and a zero or too-large
// bottom means the last row. A region whose top is not above its bottom
// (including a top past the screen) is rejected. The cursor homes.
func (t *Terminal) SetScrollingRegion(top, bottom int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if top < 1 {
		top = 1
	}
	if bottom < 1 || bottom > t.rows {
		bottom = t.rows
	}
	if !t.scr.setRegion(top-1, bottom-1) {
		return
	}
	t.homeCursor()
	t.touch()
}

// SaveCursorPosition is DECSC: cursor, pending style, charsets, origin.
func (t *Terminal) SaveCursorPosition() {
	t.mu.Lock()
	defer t.mu.Unlock()
	*t.activeSaved() = &savedCursor{
		cur:      t.cur,
		style:    t.style,
		charsets: t.charsets,
		origin:   t.modes[ModeOrigin],
	}
}

// RestoreCursorPosition is DECRC. With nothing saved it homes the cursor
// and resets the pending style, following xterm.
func (t *Terminal) RestoreCursorPosition() {
	t.mu.Lock()
	defer t.mu.Unlock()
	sc := *t.activeSaved()
	if sc == nil {
		t.cur.Row, t.cur.Col = 0, 0
		t.style = Style{}
		t.touch()
		return
	}
	t.cur = sc.cur
	t.style = sc.style
	t.charsets = sc.charsets
	t.modes[ModeOrigin] = sc.origin
	t.cur.Row = clamp(t.cur.Row, 0, t.rows-1)
	t.cur.Col = clamp(t.cur.Col, 0, t.cols)
	t.touch()
}

// ResetState is RIS: back to the freshly constructed state.
func (t *Terminal) ResetState() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
}

// --- Character sets ---

// ConfigureCharset designates a character set into one of G0-G3.
func (t *Terminal) ConfigureCharset(index ansicode.CharsetIndex, charset ansicode.Charset) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cs := CharsetASCII
	if charset == 1 {
		cs = CharsetSpecialGraphics
	}
	t.charsets.Designate(int(index), cs)
}

// SetActiveCharset invokes slot n into GL (SI invokes 0, SO invokes 1).
func (t *Terminal) SetActiveCharset(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.charsets.Invoke(n)
}

// --- SGR and color ---

// SetTerminalCharAttribute folds one SGR attribute into the pending style.
func (t *Terminal) SetTerminalCharAttribute(attr ansicode.TerminalCharAttribute) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.style
	switch attr.Attr {
	case ansicode.CharAttributeReset:
		// SGR 0 leaves the hyperlink alone; OSC 8 owns it.
		link := s.Link
		*s = Style{Link: link}
	case ansicode.CharAttributeBold:
		s.Bold = true
	case ansicode.CharAttributeDim:
		s.Faint = true
	case ansicode.CharAttributeItalic:
		s.Italic = true
	case ansicode.CharAttributeUnderline:
		s.Underline = UnderlineSingle
	case ansicode.CharAttributeDoubleUnderline:
		s.Underline = UnderlineDouble
	case ansicode.CharAttributeCurlyUnderline:
		s.Underline = UnderlineCurly
	case ansicode.CharAttributeDottedUnderline:
		s.Underline = UnderlineDotted
	case ansicode.CharAttributeDashedUnderline:
		s.Underline = UnderlineDashed
	case ansicode.CharAttributeBlinkSlow, ansicode.CharAttributeBlinkFast:
		s.Blink = true
	case ansicode.CharAttributeReverse:
		s.Inverse = true
	case ansicode.CharAttributeHidden:
		s.Hidden = true
	case ansicode.CharAttributeStrike:
		s.Strike = true
	case ansicode.CharAttributeCancelBold:
		s.Bold = false
	case ansicode.CharAttributeCancelBoldDim:
		s.Bold = false
		s.Faint = false
	case ansicode.CharAttributeCancelItalic:
		s.Italic = false
	case ansicode.CharAttributeCancelUnderline:
		s.Underline = UnderlineNone
	case ansicode.CharAttributeCancelBlink:
		s.Blink = false
	case ansicode.CharAttributeCancelReverse:
		s.Inverse = false
	case ansicode.CharAttributeCancelHidden:
		s.Hidden = false
	case ansicode.CharAttributeCancelStrike:
		s.Strike = false
	case ansicode.CharAttributeForeground:
		s.FG = colorFromAttr(attr)
	case ansicode.CharAttributeBackground:
		s.BG = colorFromAttr(attr)
	case ansicode.CharAttributeUnderlineColor:
		if attr.RGBColor == nil && attr.IndexedColor == nil && attr.NamedColor == nil {
			s.UnderlineColor = Color{}
		} else {
			s.UnderlineColor = colorFromAttr(attr)
		}
	}
}

// SetColor overrides a palette entry (OSC 4).
func (t *Terminal) SetColor(index int, c color.Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, g, b, _ := c.RGBA()
	t.palette[index] = RGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// ResetColor restores a palette entry (OSC 104); a negative index
// restores them all.
func (t *Terminal) ResetColor(i int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 {
		t.palette = make(map[int]Color)
		return
	}
	delete(t.palette, i)
}

// SetDynamicColor answers an OSC 10/11/12 color query.
func (t *Terminal) SetDynamicColor(prefix string, index int, terminator string) {
	t.mu.Lock()
	c, overridden := t.palette[index]
	t.mu.Unlock()

	var rgba color.RGBA
	switch {
	case overridden:
		rgba = c.RGBA(true)
	case index >= 0 && index < 256:
		rgba = paletteRGBA(uint8(index))
	case index == namedBackground:
		rgba = Color{}.RGBA(false)
	default:
		rgba = Color{}.RGBA(true)
	}
	t.emitString(fmt.Sprintf("\x1b]%s;rgb:%02x/%02x/%02x%s", prefix, rgba.R, rgba.G, rgba.B, terminator))
}

// --- Modes ---

// SetMode enables a terminal mode.
func (t *Terminal) SetMode(mode ansicode.TerminalMode) {
	t.changeMode(mode, true)
}

// UnsetMode disables a terminal mode.
func (t *Terminal) UnsetMode(mode ansicode.TerminalMode) {
	t.changeMode(mode, false)
}

func (t *Terminal) changeMode(mode ansicode.TerminalMode, on bool) {
	m, ok := translateMode(mode)
	if !ok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applyMode(m, on)
}

// translateMode maps the decoder's mode vocabulary onto Mode. Unsupported
// modes (DECCOLM column switching) report false and are ignored.
func translateMode(mode ansicode.TerminalMode) (Mode, bool) {
	switch mode {
	case ansicode.TerminalModeCursorKeys:
		return ModeAppCursorKeys, true
	case ansicode.TerminalModeInsert:
		return ModeInsert, true
	case ansicode.TerminalModeOrigin:
		return ModeOrigin, true
	case ansicode.TerminalModeLineWrap:
		return ModeAutoWrap, true
	case ansicode.TerminalModeShowCursor:
		return ModeCursorVisible, true
	case ansicode.TerminalModeBracketedPaste:
		return ModeBracketedPaste, true
	case ansicode.TerminalModeBlinkingCursor:
		return ModeBlinkCursor, true
	case ansicode.TerminalModeLineFeedNewLine:
		return ModeLinefeedNewline, true
	case ansicode.TerminalModeSwapScreenAndSetRestoreCursor:
		return ModeAltScreen, true
	case ansicode.TerminalModeReportMouseClicks:
		return ModeMouseClicks, true
	case ansicode.TerminalModeReportCellMouseMotion:
		return ModeMouseCellMotion, true
	case ansicode.TerminalModeReportAllMouseMotion:
		return ModeMouseAllMotion, true
	case ansicode.TerminalModeUTF8Mouse:
		return ModeMouseUTF8, true
	case ansicode.TerminalModeSGRMouse:
		return ModeMouseSGR, true
	case ansicode.TerminalModeReportFocusInOut:
		return ModeFocusReporting, true
	case ansicode.TerminalModeAlternateScroll:
		return ModeAlternateScroll, true
	case ansicode.TerminalModeUrgencyHints:
		return ModeUrgencyHints, true
	default:
		return 0, false
	}
}

// SetKeypadApplicationMode is DECKPAM.
func (t *Terminal) SetKeypadApplicationMode() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modes[ModeAppKeypad] = true
}

// UnsetKeypadApplicationMode is DECKPNM.
func (t *Terminal) UnsetKeypadApplicationMode() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modes[ModeAppKeypad] = false
}

// SetCursorStyle applies DECSCUSR: shape plus blink.
func (t *Terminal) SetCursorStyle(style ansicode.CursorStyle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := int(style)
	shapes := [...]CursorShape{CursorBlock, CursorBlock, CursorUnderline, CursorUnderline, CursorBar, CursorBar}
	if n >= 0 && n < len(shapes) {
		t.cur.Shape = shapes[n]
		t.cur.Blinking = n%2 == 0
		t.touch()
	}
}

// --- Reports ---

// DeviceStatus answers DSR: 5 reports ready, 6 the cursor position.
func (t *Terminal) DeviceStatus(n int) {
	switch n {
	case 5:
		t.emitString("\x1b[0n")
	case 6:
		t.mu.Lock()
		row, col := t.cur.Row, t.cur.Col
		t.mu.Unlock()
		t.emitString(fmt.Sprintf("\x1b[%d;%dR", row+1, col+1))
	}
}

// IdentifyTerminal answers DA with the classic VT100-with-advanced-video
// reply.
func (t *Terminal) IdentifyTerminal(b byte) {
	t.emitString("\x1b[?1;2c")
}

// TextAreaSizeChars answers CSI 18 t.
func (t *Terminal) TextAreaSizeChars() {
	t.mu.Lock()
	rows, cols := t.rows, t.cols
	t.mu.Unlock()
	t.emitString(fmt.Sprintf("\x1b[8;%d;%dt", rows, cols))
}

// TextAreaSizePixels answers CSI 14 t, assuming the default 10x20 cell.
func (t *Terminal) TextAreaSizePixels() {
	t.mu.Lock()
	rows, cols := t.rows, t.cols
	t.mu.Unlock()
	t.emitString(fmt.Sprintf("\x1b[4;%d;%dt", rows*defaultCellHeight, cols*defaultCellWidth))
}

// CellSizePixels answers CSI 16 t.
func (t *Terminal) CellSizePixels() {
	t.emitString(fmt.Sprintf("\x1b[6;%d;%dt", defaultCellHeight, defaultCellWidth))
}

// --- Title ---

// maxTitleWidth bounds OSC 0/2 payloads so a hostile stream cannot park
// an unbounded string in the title.
const maxTitleWidth = 2048

// SetTitle stores the window title and notifies the observer.
func (t *Terminal) SetTitle(title string) {
	title = TruncateToWidth(title, maxTitleWidth)
	t.mu.Lock()
	t.title = title
	t.touch()
	t.mu.Unlock()
	if t.obs.Title != nil {
		t.obs.Title(title)
	}
}

// PushTitle saves the title onto the xterm title stack.
func (t *Terminal) PushTitle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.titleStack = append(t.titleStack, t.title)
}

// PopTitle restores the most recently pushed title.
func (t *Terminal) PopTitle() {
	t.mu.Lock()
	if n := len(t.titleStack); n > 0 {
		t.title = t.titleStack[n-1]
		t.titleStack = t.titleStack[:n-1]
		t.touch()
	}
	title := t.title
	t.mu.Unlock()
	if t.obs.Title != nil {
		t.obs.Title(title)
	}
}

// --- Hyperlink, clipboard, working directory ---

// SetHyperlink opens or closes an OSC 8 hyperlink scope.
func (t *Terminal) SetHyperlink(hyperlink *ansicode.Hyperlink) {
	t.mu.Lock()
	if hyperlink == nil || hyperlink.URI == "" {
		t.style.Link = nil
	} else {
		t.style.Link = &Link{ID: hyperlink.ID, URI: hyperlink.URI}
	}
	t.mu.Unlock()
	if t.obs.Hyperlink != nil {
		if hyperlink == nil {
			t.obs.Hyperlink("", "")
		} else {
			t.obs.Hyperlink(hyperlink.URI, hyperlink.ID)
		}
	}
}

// ClipboardStore receives OSC 52 writes (already base64-decoded by the
// decoder) and hands the text to the observer.
func (t *Terminal) ClipboardStore(clipboard byte, data []byte) {
	t.mu.Lock()
	if t.clipboards == nil {
		t.clipboards = make(map[byte][]byte)
	}
	t.clipboards[clipboard] = append([]byte(nil), data...)
	t.mu.Unlock()
	if t.obs.Clipboard != nil {
		t.obs.Clipboard(string(data))
	}
}

// ClipboardLoad answers an OSC 52 read with the last stored payload.
func (t *Terminal) ClipboardLoad(clipboard byte, terminator string) {
	t.mu.Lock()
	data := t.clipboards[clipboard]
	t.mu.Unlock()
	encoded := base64.StdEncoding.EncodeToString(data)
	t.emitString("\x1b]52;" + string(clipboard) + ";" + encoded + terminator)
}

// SetWorkingDirectory records an OSC 7 working-directory report.
func (t *Terminal) SetWorkingDirectory(uri string) {
	t.mu.Lock()
	t.workingDir = uri
	t.mu.Unlock()
	if t.obs.WorkingDirectory != nil {
		t.obs.WorkingDirectory(uri)
	}
}

// --- Keyboard protocol state ---

// SetKeyboardMode alters the top of the kitty keyboard-mode stack.
func (t *Terminal) SetKeyboardMode(mode ansicode.KeyboardMode, behavior ansicode.KeyboardModeBehavior) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := ansicode.KeyboardModeNoMode
	if n := len(t.keyboardModes); n > 0 {
		current = t.keyboardModes[n-1]
	}
	switch behavior {
	case ansicode.KeyboardModeBehaviorUnion:
		mode = current | mode
	case ansicode.KeyboardModeBehaviorDifference:
		mode = current &^ mode
	}
	if n := len(t.keyboardModes); n > 0 {
		t.keyboardModes[n-1] = mode
	} else {
		t.keyboardModes = append(t.keyboardModes, mode)
	}
}

// PushKeyboardMode pushes onto the keyboard-mode stack.
func (t *Terminal) PushKeyboardMode(mode ansicode.KeyboardMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keyboardModes = append(t.keyboardModes, mode)
}

// PopKeyboardMode pops n entries off the keyboard-mode stack.
func (t *Terminal) PopKeyboardMode(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < n && len(t.keyboardModes) > 0; i++ {
		t.keyboardModes = t.keyboardModes[:len(t.keyboardModes)-1]
	}
}

// ReportKeyboardMode answers a keyboard-mode query.
func (t *Terminal) ReportKeyboardMode() {
	t.mu.Lock()
	mode := ansicode.KeyboardModeNoMode
	if n := len(t.keyboardModes); n > 0 {
		mode = t.keyboardModes[n-1]
	}
	t.mu.Unlock()
	t.emitString(fmt.Sprintf("\x1b[?%du", mode))
}

// SetModifyOtherKeys stores the xterm modifyOtherKeys level.
func (t *Terminal) SetModifyOtherKeys(modify ansicode.ModifyOtherKeys) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modifyOtherKeys = modify
}

// ReportModifyOtherKeys answers the matching query.
func (t *Terminal) ReportModifyOtherKeys() {
	t.mu.Lock()
	modify := t.modifyOtherKeys
	t.mu.Unlock()
	t.emitString(fmt.Sprintf("\x1b[>4;%dm", modify))
}

// --- String sequences ---

// ApplicationCommandReceived routes APC payloads; kitty graphics is the
// only recognised consumer.
func (t *Terminal) ApplicationCommandReceived(data []byte) {
	if len(data) > 0 && data[0] == 'G' {
		t.handleKittyGraphics(data[1:])
	}
}

// PrivacyMessageReceived drops PM strings; nothing consumes them.
func (t *Terminal) PrivacyMessageReceived(data []byte) {}

// StartOfStringReceived drops SOS strings; nothing consumes them.
func (t *Terminal) StartOfStringReceived(data []byte) {}

// SixelReceived drops Sixel payloads; inline graphics use the kitty
// protocol here.
func (t *Terminal) SixelReceived(params [][]uint16, data []byte) {}
