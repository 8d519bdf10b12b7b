package headlessterm

import (
	"image/color"

	"github.com/danielgatis/go-ansicode"
)

// ColorKind tags the three ways a cell color can be specified.
type ColorKind uint8

const (
	// ColorDefault follows the terminal's configured default for its slot
	// (foreground, background, or underline).
	ColorDefault ColorKind = iota
	// ColorIndexed is one of the 256 palette entries.
	ColorIndexed
	// ColorRGB is a direct 24-bit color.
	ColorRGB
)

// Color is a tagged color value: default, palette index, or direct RGB.
// The zero value is the default color.
type Color struct {
	Kind    ColorKind
	Index   uint8
	R, G, B uint8
}

// Indexed returns a palette color.
func Indexed(n uint8) Color {
	return Color{Kind: ColorIndexed, Index: n}
}

// RGB returns a direct 24-bit color.
func RGB(r, g, b uint8) Color {
	return Color{Kind: ColorRGB, R: r, G: g, B: b}
}

// IsDefault reports whether c follows the terminal default for its slot.
func (c Color) IsDefault() bool {
	return c.Kind == ColorDefault
}

// RGBA resolves c against the standard xterm palette. Default colors
// resolve to white on black, the conventional fallback when the embedder
// has not supplied a scheme; foreground selects which of the two.
func (c Color) RGBA(foreground bool) color.RGBA {
	switch c.Kind {
	case ColorRGB:
		return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	case ColorIndexed:
		return paletteRGBA(c.Index)
	default:
		if foreground {
			return color.RGBA{R: 229, G: 229, B: 229, A: 255}
		}
		return color.RGBA{A: 255}
	}
}

// baseColors are the 16 classic ANSI entries of the xterm palette.
var baseColors = [16]color.RGBA{
	{0, 0, 0, 255}, {205, 0, 0, 255}, {0, 205, 0, 255}, {205, 205, 0, 255},
	{0, 0, 238, 255}, {205, 0, 205, 255}, {0, 205, 205, 255}, {229, 229, 229, 255},
	{127, 127, 127, 255}, {255, 0, 0, 255}, {0, 255, 0, 255}, {255, 255, 0, 255},
	{92, 92, 255, 255}, {255, 0, 255, 255}, {0, 255, 255, 255}, {255, 255, 255, 255},
}

// paletteRGBA computes the xterm-256 palette entry for an index: the 16
// base colors, the 6x6x6 color cube, then the 24-step grey ramp.
func paletteRGBA(n uint8) color.RGBA {
	if n < 16 {
		return baseColors[n]
	}
	if n < 232 {
		i := int(n) - 16
		step := func(v int) uint8 {
			if v == 0 {
				return 0
			}
			return uint8(55 + 40*v)
		}
		return color.RGBA{
			R: step(i / 36),
			G: step((i / 6) % 6),
			B: step(i % 6),
			A: 255,
		}
	}
	grey := uint8(8 + 10*(int(n)-232))
	return color.RGBA{R: grey, G: grey, B: grey, A: 255}
}

// Named-color codes the decoder uses beyond the 256 palette slots. These
// follow the conventional VT numbering for default and dim variants.
const (
	namedForeground       = 256
	namedBackground       = 257
	namedCursor           = 258
	namedDimBlack         = 259
	namedDimWhite         = 266
	namedBrightForeground = 267
	namedDimForeground    = 268
)

// colorFromAttr converts the decoder's three-way color encoding (direct
// RGB, palette index, or named code) into a tagged Color. Named defaults
// collapse onto ColorDefault; dim variants fall back to their normal
// palette entry since this model carries no faint palette.
func colorFromAttr(attr ansicode.TerminalCharAttribute) Color {
	if attr.RGBColor != nil {
		return RGB(attr.RGBColor.R, attr.RGBColor.G, attr.RGBColor.B)
	}
	if attr.IndexedColor != nil {
		return Indexed(uint8(attr.IndexedColor.Index))
	}
	if attr.NamedColor != nil {
		return colorFromNamed(int(*attr.NamedColor))
	}
	return Color{}
}

func colorFromNamed(name int) Color {
	switch {
	case name >= 0 && name < 256:
		return Indexed(uint8(name))
	case name >= namedDimBlack && name <= namedDimWhite:
		return Indexed(uint8(name - namedDimBlack))
	case name == namedBrightForeground:
		return Indexed(15)
	case name == namedDimForeground:
		return Indexed(7)
	default:
		// Foreground, background, cursor.
		return Color{}
	}
}
