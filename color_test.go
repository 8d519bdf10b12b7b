package headlessterm

import (
	"image/color"
	"testing"
)

func TestColorTags(t *testing.T) {
	if !(Color{}).IsDefault() {
		t.Error("zero Color should be default")
	}
	if Indexed(3).IsDefault() || RGB(0, 0, 0).IsDefault() {
		t.Error("indexed/rgb colors misreported as default")
	}
	if Indexed(3).Kind != ColorIndexed || RGB(1, 2, 3).Kind != ColorRGB {
		t.Error("constructors set the wrong kind")
	}
}

func TestColorRGBAResolution(t *testing.T) {
	if got := RGB(10, 20, 30).RGBA(true); got != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("direct rgb resolved to %v", got)
	}
	// Palette entry 1 is the classic dark red.
	if got := Indexed(1).RGBA(true); got != (color.RGBA{205, 0, 0, 255}) {
		t.Errorf("indexed 1 resolved to %v", got)
	}
	fg := Color{}.RGBA(true)
	bg := Color{}.RGBA(false)
	if fg == bg {
		t.Error("default foreground and background should differ")
	}
}

func TestPaletteCube(t *testing.T) {
	// 16 is the cube origin: black.
	if got := paletteRGBA(16); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("entry 16 = %v", got)
	}
	// 21 is pure blue at full cube intensity.
	if got := paletteRGBA(21); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("entry 21 = %v", got)
	}
	// 231 is cube white.
	if got := paletteRGBA(231); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("entry 231 = %v", got)
	}
	// Grey ramp endpoints.
	if got := paletteRGBA(232); got != (color.RGBA{8, 8, 8, 255}) {
		t.Errorf("entry 232 = %v", got)
	}
	if got := paletteRGBA(255); got != (color.RGBA{238, 238, 238, 255}) {
		t.Errorf("entry 255 = %v", got)
	}
}

func TestColorFromNamed(t *testing.T) {
	if got := colorFromNamed(4); got != Indexed(4) {
		t.Errorf("named 4 = %+v", got)
	}
	if got := colorFromNamed(namedForeground); !got.IsDefault() {
		t.Errorf("named foreground = %+v, want default", got)
	}
	if got := colorFromNamed(namedDimBlack + 2); got != Indexed(2) {
		t.Errorf("dim variant = %+v, want indexed 2", got)
	}
}
