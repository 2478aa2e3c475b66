package ansi

import (
	"strings"
	"unicode/utf8"

	"qterm/grid"
)

type state uint8

const (
	stateGround state = iota
	stateEscape
	stateCSI
	stateOSC
	stateOSCEsc  // saw ESC inside an OSC payload, expecting ST
	stateCharset // ESC ( — consume the designation byte
)

const (
	maxParams    = 16
	maxParamVal  = 65535 // caps multiply-and-add so hostile input can't overflow
	maxOSCLength = 4096
)

// Parser is a streaming decoder. State persists across Feed calls, so a
// sequence split across reads resumes where it left off. The zero value is
// not usable; call NewParser.
type Parser struct {
	state state

	params  [maxParams]int
	nparams int
	overflw bool // params beyond maxParams are dropped
	inter   byte // single pending intermediate byte

	osc []byte

	// Partial UTF-8 rune carried between Feed calls.
	utf8buf  [utf8.UTFMax]byte
	utf8len  int
	utf8need int
}

func NewParser() *Parser {
	return &Parser{}
}

// Feed decodes data and returns the operations it completes, in input
// order. Malformed or unsupported input never fails; it decodes to nothing.
func (p *Parser) Feed(data []byte) []Op {
	var ops []Op
	emit := func(op Op) { ops = append(ops, op) }

	for i := 0; i < len(data); i++ {
		b := data[i]
		switch p.state {
		case stateGround:
			p.ground(b, emit)
		case stateEscape:
			p.escape(b, emit)
		case stateCSI:
			p.csi(b, emit)
		case stateOSC:
			if b == 0x07 {
				p.finishOSC(emit)
				p.state = stateGround
			} else if b == 0x1b {
				p.state = stateOSCEsc
			} else if len(p.osc) < maxOSCLength {
				p.osc = append(p.osc, b)
			}
		case stateOSCEsc:
			p.finishOSC(emit)
			if b == '\\' {
				p.state = stateGround
			} else {
				// Not a string terminator: the ESC opened a new sequence.
				p.state = stateEscape
				p.escape(b, emit)
			}
		case stateCharset:
			p.state = stateGround
		}
	}
	return ops
}

func (p *Parser) ground(b byte, emit func(Op)) {
	if p.utf8need > 0 {
		if b&0xc0 == 0x80 {
			p.utf8buf[p.utf8len] = b
			p.utf8len++
			if p.utf8len == p.utf8need {
				r, _ := utf8.DecodeRune(p.utf8buf[:p.utf8len])
				p.utf8len, p.utf8need = 0, 0
				if r != utf8.RuneError {
					emit(Op{Kind: OpPrint, Ch: r})
				}
			}
			return
		}
		// Truncated rune; drop it and decode b normally.
		p.utf8len, p.utf8need = 0, 0
	}

	switch {
	case b == 0x1b:
		p.state = stateEscape
	case b == '\n':
		emit(Op{Kind: OpLinefeed})
	case b == '\r':
		emit(Op{Kind: OpCarriageReturn})
	case b == '\t':
		emit(Op{Kind: OpTab})
	case b == '\b':
		emit(Op{Kind: OpBackspace})
	case b == 0x07:
		emit(Op{Kind: OpBell})
	case b < 0x20 || b == 0x7f:
		// Remaining C0 controls and DEL are dropped.
	case b < 0x80:
		emit(Op{Kind: OpPrint, Ch: rune(b)})
	default:
		switch {
		case b&0xe0 == 0xc0:
			p.utf8need = 2
		case b&0xf0 == 0xe0:
			p.utf8need = 3
		case b&0xf8 == 0xf0:
			p.utf8need = 4
		default:
			return // stray continuation byte
		}
		p.utf8buf[0] = b
		p.utf8len = 1
	}
}

func (p *Parser) escape(b byte, emit func(Op)) {
	switch b {
	case '[':
		p.state = stateCSI
		p.params = [maxParams]int{}
		p.nparams = 0
		p.overflw = false
		p.inter = 0
	case ']':
		p.state = stateOSC
		p.osc = p.osc[:0]
	case '(':
		p.state = stateCharset
	case '7':
		emit(Op{Kind: OpSaveCursor})
		p.state = stateGround
	case '8':
		emit(Op{Kind: OpRestoreCursor})
		p.state = stateGround
	case 'M':
		emit(Op{Kind: OpReverseIndex})
		p.state = stateGround
	default:
		// Unsupported escapes (keypad modes and the rest) drop silently.
		p.state = stateGround
	}
}

func (p *Parser) csi(b byte, emit func(Op)) {
	switch {
	case b >= '0' && b <= '9':
		if p.overflw {
			return
		}
		if p.nparams == 0 {
			p.nparams = 1
		}
		v := p.params[p.nparams-1]*10 + int(b-'0')
		if v > maxParamVal {
			v = maxParamVal
		}
		p.params[p.nparams-1] = v
	case b == ';':
		if p.nparams == 0 {
			p.nparams = 1
		}
		if p.nparams < maxParams {
			p.nparams++
		} else {
			p.overflw = true
		}
	case b >= 0x40 && b <= 0x7e:
		p.dispatchCSI(b, emit)
		p.state = stateGround
	default:
		p.inter = b
	}
}

// param returns the i-th parameter, def when absent or zero. Zero counts as
// absent: CSI 0 A still moves by one, matching conventional terminals.
func (p *Parser) param(i, def int) int {
	if i >= p.nparams || p.params[i] == 0 {
		return def
	}
	return p.params[i]
}

// rawParam returns the i-th parameter with missing treated as 0.
func (p *Parser) rawParam(i int) int {
	if i >= p.nparams {
		return 0
	}
	return p.params[i]
}

func (p *Parser) dispatchCSI(final byte, emit func(Op)) {
	// The only intermediate we act on is the DEC private marker on h/l.
	// Any other qualified sequence is unsupported and dropped whole.
	if p.inter != 0 && !(p.inter == '?' && (final == 'h' || final == 'l')) {
		return
	}

	switch final {
	case 'A':
		emit(Op{Kind: OpCursorUp, N: p.param(0, 1)})
	case 'B':
		emit(Op{Kind: OpCursorDown, N: p.param(0, 1)})
	case 'C':
		emit(Op{Kind: OpCursorForward, N: p.param(0, 1)})
	case 'D':
		emit(Op{Kind: OpCursorBack, N: p.param(0, 1)})
	case 'E':
		emit(Op{Kind: OpCursorNextLine, N: p.param(0, 1)})
	case 'F':
		emit(Op{Kind: OpCursorPrevLine, N: p.param(0, 1)})
	case 'G':
		emit(Op{Kind: OpCursorCol, Col: p.param(0, 1) - 1})
	case 'd':
		emit(Op{Kind: OpCursorRow, Row: p.param(0, 1) - 1})
	case 'H', 'f':
		emit(Op{Kind: OpCursorPos, Row: p.param(0, 1) - 1, Col: p.param(1, 1) - 1})
	case 'J':
		emit(Op{Kind: OpEraseDisplay, N: p.rawParam(0)})
	case 'K':
		emit(Op{Kind: OpEraseLine, N: p.rawParam(0)})
	case 'X':
		emit(Op{Kind: OpEraseChars, N: p.param(0, 1)})
	case 'P':
		emit(Op{Kind: OpDeleteChars, N: p.param(0, 1)})
	case '@':
		emit(Op{Kind: OpInsertChars, N: p.param(0, 1)})
	case 'L':
		emit(Op{Kind: OpInsertLines, N: p.param(0, 1)})
	case 'M':
		emit(Op{Kind: OpDeleteLines, N: p.param(0, 1)})
	case 'S':
		emit(Op{Kind: OpScrollUp, N: p.param(0, 1)})
	case 'T':
		emit(Op{Kind: OpScrollDown, N: p.param(0, 1)})
	case 'r':
		bot := p.rawParam(1) - 1
		if p.rawParam(1) == 0 {
			bot = -1 // last row; the screen knows its height
		}
		emit(Op{Kind: OpSetScrollRegion, Row: p.param(0, 1) - 1, Col: bot})
	case 'm':
		p.dispatchSGR(emit)
	case 'h', 'l':
		if p.inter != '?' {
			return // ANSI modes unsupported
		}
		kind := OpSetMode
		if final == 'l' {
			kind = OpResetMode
		}
		for i := 0; i < p.nparams; i++ {
			emit(Op{Kind: kind, N: p.params[i]})
		}
	case 's':
		emit(Op{Kind: OpSaveCursor})
	case 'u':
		emit(Op{Kind: OpRestoreCursor})
	case 'n':
		if p.rawParam(0) == 6 {
			emit(Op{Kind: OpReportCursor})
		}
	}
	// Unrecognized finals fall through without emitting anything; the
	// parser state is already back to ground.
}

func (p *Parser) dispatchSGR(emit func(Op)) {
	if p.nparams == 0 {
		emit(Op{Kind: OpResetStyle})
		return
	}
	for i := 0; i < p.nparams; i++ {
		c := p.params[i]
		switch {
		case c == 0:
			emit(Op{Kind: OpResetStyle})
		case c == 1:
			emit(Op{Kind: OpSetAttr, Attr: grid.AttrBold})
		case c == 3:
			emit(Op{Kind: OpSetAttr, Attr: grid.AttrItalic})
		case c == 4:
			emit(Op{Kind: OpSetAttr, Attr: grid.AttrUnderline})
		case c == 7:
			emit(Op{Kind: OpSetAttr, Attr: grid.AttrReverse})
		case c == 22:
			emit(Op{Kind: OpClearAttr, Attr: grid.AttrBold})
		case c == 23:
			emit(Op{Kind: OpClearAttr, Attr: grid.AttrItalic})
		case c == 24:
			emit(Op{Kind: OpClearAttr, Attr: grid.AttrUnderline})
		case c == 27:
			emit(Op{Kind: OpClearAttr, Attr: grid.AttrReverse})
		case c >= 30 && c <= 37:
			emit(Op{Kind: OpSetFg, Color: grid.IndexedColor(uint8(c - 30))})
		case c == 38:
			col, skip := p.extendedColor(i)
			if skip == 0 {
				return
			}
			emit(Op{Kind: OpSetFg, Color: col})
			i += skip
		case c == 39:
			emit(Op{Kind: OpSetFg})
		case c >= 40 && c <= 47:
			emit(Op{Kind: OpSetBg, Color: grid.IndexedColor(uint8(c - 40))})
		case c == 48:
			col, skip := p.extendedColor(i)
			if skip == 0 {
				return
			}
			emit(Op{Kind: OpSetBg, Color: col})
			i += skip
		case c == 49:
			emit(Op{Kind: OpSetBg})
		case c >= 90 && c <= 97:
			emit(Op{Kind: OpSetFg, Color: grid.IndexedColor(uint8(c - 90 + 8))})
		case c >= 100 && c <= 107:
			emit(Op{Kind: OpSetBg, Color: grid.IndexedColor(uint8(c - 100 + 8))})
		}
	}
}

// extendedColor decodes 38/48 sub-parameters starting at index i. It
// returns the color and how many extra parameters were consumed: 2 for the
// indexed 5;N form, 4 for the 2;r;g;b form, 0 when truncated (the caller
// abandons the rest of the sequence rather than misread it).
func (p *Parser) extendedColor(i int) (grid.Color, int) {
	switch p.rawParam(i + 1) {
	case 5:
		if i+2 >= p.nparams {
			return grid.Color{}, 0
		}
		return grid.IndexedColor(uint8(p.rawParam(i + 2))), 2
	case 2:
		if i+4 >= p.nparams {
			return grid.Color{}, 0
		}
		return grid.RGBColor(
			uint8(p.rawParam(i+2)),
			uint8(p.rawParam(i+3)),
			uint8(p.rawParam(i+4)),
		), 4
	}
	return grid.Color{}, 0
}

func (p *Parser) finishOSC(emit func(Op)) {
	s := string(p.osc)
	p.osc = p.osc[:0]
	code, content, ok := strings.Cut(s, ";")
	if !ok {
		return
	}
	switch code {
	case "0", "1", "2": // window title / icon name
		emit(Op{Kind: OpSetTitle, Text: content})
	}
	// Other OSC payloads are consumed and discarded.
}
