package grid

import "strings"

// Direction is the cached display direction of a line. It is set by an
// external classifier and only stored here; the grid never derives it.
type Direction uint8

const (
	DirNeutral Direction = iota
	DirLTR
	DirRTL
)

func (d Direction) String() string {
	switch d {
	case DirLTR:
		return "ltr"
	case DirRTL:
		return "rtl"
	default:
		return "neutral"
	}
}

// ColorMode selects how a Color value is interpreted.
type ColorMode uint8

const (
	ColorModeDefault ColorMode = iota
	ColorModeIndexed           // Value is a palette index 0-255
	ColorModeRGB               // Value is 0xRRGGBB
)

// Color is a terminal color: the default color, a palette index, or RGB.
// The zero value is the default color.
type Color struct {
	Mode  ColorMode
	Value uint32
}

func IndexedColor(n uint8) Color {
	return Color{Mode: ColorModeIndexed, Value: uint32(n)}
}

func RGBColor(r, g, b uint8) Color {
	return Color{Mode: ColorModeRGB, Value: uint32(r)<<16 | uint32(g)<<8 | uint32(b)}
}

// RGB returns the color components of an RGB color.
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c.Value >> 16), uint8(c.Value >> 8), uint8(c.Value)
}

func (c Color) IsDefault() bool { return c.Mode == ColorModeDefault }

// Attr is a bit set of display attributes.
type Attr uint8

const (
	AttrBold Attr = 1 << iota
	AttrUnderline
	AttrReverse
	AttrItalic
)

// Style is the full rendition applied to a cell.
type Style struct {
	Fg    Color
	Bg    Color
	Attrs Attr
}

// Cell holds one character position: a single codepoint plus its style.
// Combining marks are not represented.
type Cell struct {
	Ch    rune
	Style Style
}

// BlankCell returns an empty cell carrying the given background color.
func BlankCell(bg Color) Cell {
	return Cell{Ch: ' ', Style: Style{Bg: bg}}
}

// Line is one row of the grid. Wrapped marks a soft continuation of the
// previous line's output rather than a hard newline.
type Line struct {
	Cells   []Cell
	Wrapped bool
	Dir     Direction
}

func newLine(cols int, bg Color) Line {
	l := Line{Cells: make([]Cell, cols)}
	blank := BlankCell(bg)
	for i := range l.Cells {
		l.Cells[i] = blank
	}
	return l
}

// Text returns the line's characters with trailing blanks removed.
func (l Line) Text() string {
	end := len(l.Cells)
	for end > 0 {
		c := l.Cells[end-1]
		if c.Ch != ' ' && c.Ch != 0 {
			break
		}
		end--
	}
	var sb strings.Builder
	for _, c := range l.Cells[:end] {
		if c.Ch == 0 {
			sb.WriteRune(' ')
			continue
		}
		sb.WriteRune(c.Ch)
	}
	return sb.String()
}

// clone deep-copies the line so snapshots don't alias live cells.
func (l Line) clone() Line {
	cells := make([]Cell, len(l.Cells))
	copy(cells, l.Cells)
	return Line{Cells: cells, Wrapped: l.Wrapped, Dir: l.Dir}
}
