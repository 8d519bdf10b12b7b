package headlessterm

import "testing"

func TestCharsetDefaultsPassThrough(t *testing.T) {
	ct := newCharsetTable()
	for _, r := range "Aq~ 中" {
		if got := ct.Map(r); got != r {
			t.Errorf("Map(%q) = %q with ASCII designated", r, got)
		}
	}
}

func TestCharsetSpecialGraphics(t *testing.T) {
	ct := newCharsetTable()
	ct.Designate(0, CharsetSpecialGraphics)

	cases := map[rune]rune{
		'q': '─', 'x': '│', 'l': '┌', 'k': '┐', 'm': '└', 'j': '┘',
		'n': '┼', 't': '├', 'u': '┤', 'v': '┴', 'w': '┬',
		'y': '≤', 'z': '≥', '{': 'π', '|': '≠', '}': '£', '~': '·',
		'_': ' ', '`': '◆', 'a': '▒', 'f': '°', 'g': '±',
		'o': '⎺', 'p': '⎻', 'r': '⎼', 's': '⎽',
	}
	for in, want := range cases {
		if got := ct.Map(in); got != want {
			t.Errorf("Map(%q) = %q, want %q", in, got, want)
		}
	}

	// Characters outside the drawing repertoire pass through.
	if got := ct.Map('A'); got != 'A' {
		t.Errorf("Map('A') = %q, want 'A'", got)
	}
	// Non-ASCII input is never translated.
	if got := ct.Map('中'); got != '中' {
		t.Errorf("Map('中') = %q", got)
	}
}

func TestCharsetInvoke(t *testing.T) {
	ct := newCharsetTable()
	ct.Designate(1, CharsetSpecialGraphics)

	if got := ct.Map('q'); got != 'q' {
		t.Error("G1 designation leaked into GL before shift-out")
	}

	ct.Invoke(1) // SO
	if got := ct.Map('q'); got != '─' {
		t.Errorf("after shift-out Map('q') = %q, want '─'", got)
	}

	ct.Invoke(0) // SI
	if got := ct.Map('q'); got != 'q' {
		t.Error("shift-in did not restore G0")
	}
}

func TestCharsetReset(t *testing.T) {
	ct := newCharsetTable()
	ct.Designate(0, CharsetSpecialGraphics)
	ct.Invoke(1)
	ct.Reset()

	if ct.GL() != 0 || ct.Slot(0) != CharsetASCII {
		t.Error("reset did not restore defaults")
	}
}

func TestCharsetBounds(t *testing.T) {
	ct := newCharsetTable()
	ct.Designate(-1, CharsetSpecialGraphics)
	ct.Designate(7, CharsetSpecialGraphics)
	ct.Invoke(9)

	if ct.GL() != 0 {
		t.Error("out-of-range invoke moved GL")
	}
	for i := 0; i < 4; i++ {
		if ct.Slot(i) != CharsetASCII {
			t.Errorf("out-of-range designation landed in slot %d", i)
		}
	}
}
