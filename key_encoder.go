package headlessterm

import (
	"fmt"
	"strings"
)

// Key identifies a logical key independent of the rune it might produce.
type Key int

const (
	KeyNone Key = iota
	KeyRune
	KeyEnter
	KeyBackspace
	KeyTab
	KeyEscape
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// KeyEvent is a logical key press, independent of any particular input
// library's representation.
type KeyEvent struct {
	Key   Key
	Rune  rune // valid when Key == KeyRune
	Shift bool
	Alt   bool
	Ctrl  bool
	Meta  bool
}

func (k KeyEvent) hasModifier() bool {
	return k.Shift || k.Alt || k.Ctrl || k.Meta
}

// xtermModifier computes the xterm modifier parameter: 1 + sum of bit weights.
// Encoded as the second CSI parameter (e.g. "CSI 1;5A" for Ctrl-Up).
func (k KeyEvent) xtermModifier() int {
	m := 1
	if k.Shift {
		m += 1
	}
	if k.Alt {
		m += 2
	}
	if k.Ctrl {
		m += 4
	}
	if k.Meta {
		m += 8
	}
	return m
}

// KeyEncoder translates key events into the byte sequences a real terminal
// sends upstream. It holds no mutable state: the same event and mode flags
// always produce the same bytes.
type KeyEncoder struct{}

// NewKeyEncoder creates a KeyEncoder.
func NewKeyEncoder() *KeyEncoder {
	return &KeyEncoder{}
}

// Encode returns the byte sequence for ev, or nil if the key produces no
// output. appCursorKeys selects application (DECCKM on) vs normal cursor-key
// encoding for the arrow keys.
func (e *KeyEncoder) Encode(ev KeyEvent, appCursorKeys bool) []byte {
	switch ev.Key {
	case KeyRune:
		return e.encodeRune(ev)
	case KeyEnter:
		return []byte{'\r'}
	case KeyBackspace:
		return []byte{0x7f}
	case KeyTab:
		if ev.Shift {
			return []byte("\x1b[Z")
		}
		return []byte{'\t'}
	case KeyEscape:
		return []byte{0x1b}
	case KeyUp:
		return e.encodeCursor('A', appCursorKeys, ev)
	case KeyDown:
		return e.encodeCursor('B', appCursorKeys, ev)
	case KeyRight:
		return e.encodeCursor('C', appCursorKeys, ev)
	case KeyLeft:
		return e.encodeCursor('D', appCursorKeys, ev)
	case KeyHome:
		return e.encodeCursor('H', appCursorKeys, ev)
	case KeyEnd:
		return e.encodeCursor('F', appCursorKeys, ev)
	case KeyPageUp:
		return e.encodeTilde(5, ev)
	case KeyPageDown:
		return e.encodeTilde(6, ev)
	case KeyInsert:
		return e.encodeTilde(2, ev)
	case KeyDelete:
		return e.encodeTilde(3, ev)
	case KeyF1:
		return e.encodeFunctionLow('P', ev)
	case KeyF2:
		return e.encodeFunctionLow('Q', ev)
	case KeyF3:
		return e.encodeFunctionLow('R', ev)
	case KeyF4:
		return e.encodeFunctionLow('S', ev)
	case KeyF5:
		return e.encodeTilde(15, ev)
	case KeyF6:
		return e.encodeTilde(17, ev)
	case KeyF7:
		return e.encodeTilde(18, ev)
	case KeyF8:
		return e.encodeTilde(19, ev)
	case KeyF9:
		return e.encodeTilde(20, ev)
	case KeyF10:
		return e.encodeTilde(21, ev)
	case KeyF11:
		return e.encodeTilde(23, ev)
	case KeyF12:
		return e.encodeTilde(24, ev)
	default:
		return nil
	}
}

// encodeRune emits the UTF-8 bytes of a printable key, masking Ctrl-letter
// combinations to 0x01-0x1A and prefixing ESC for Alt.
func (e *KeyEncoder) encodeRune(ev KeyEvent) []byte {
	r := ev.Rune
	var out []byte

	if ev.Ctrl {
		upper := r
		if upper >= 'a' && upper <= 'z' {
			upper -= 'a' - 'A'
		}
		if upper >= '@' && upper <= '_' {
			out = []byte{byte(upper - '@')}
		} else {
			out = []byte(string(r))
		}
	} else {
		out = []byte(string(r))
	}

	if ev.Alt {
		out = append([]byte{0x1b}, out...)
	}
	return out
}

// encodeCursor encodes an arrow/Home/End key. Application mode with no
// modifiers uses SS3 (ESC O); everything else uses CSI, since SS3 cannot
// carry a modifier parameter.
func (e *KeyEncoder) encodeCursor(final byte, appCursorKeys bool, ev KeyEvent) []byte {
	if !ev.hasModifier() {
		if appCursorKeys {
			return []byte{0x1b, 'O', final}
		}
		return []byte{0x1b, '[', final}
	}
	return []byte(fmt.Sprintf("\x1b[1;%d%c", ev.xtermModifier(), final))
}

// encodeFunctionLow encodes F1-F4, which use SS3 without modifiers and CSI
// with modifiers (xterm convention).
func (e *KeyEncoder) encodeFunctionLow(final byte, ev KeyEvent) []byte {
	if !ev.hasModifier() {
		return []byte{0x1b, 'O', final}
	}
	return []byte(fmt.Sprintf("\x1b[1;%d%c", ev.xtermModifier(), final))
}

// encodeTilde encodes keys in the CSI Pn ~ family (Insert/Delete/PageUp/
// PageDown/F5 and up), appending a modifier parameter when present.
func (e *KeyEncoder) encodeTilde(n int, ev KeyEvent) []byte {
	var b strings.Builder
	b.WriteString("\x1b[")
	fmt.Fprintf(&b, "%d", n)
	if ev.hasModifier() {
		fmt.Fprintf(&b, ";%d", ev.xtermModifier())
	}
	b.WriteByte('~')
	return []byte(b.String())
}
