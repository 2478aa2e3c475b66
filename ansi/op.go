// Package ansi decodes a raw terminal byte stream into screen operations.
// The parser is a pure state machine: it touches no I/O and holds no grid
// reference, so the same stream split at any byte boundary decodes to the
// same operation sequence.
package ansi

import "qterm/grid"

// OpKind tags an Op variant.
type OpKind uint8

const (
	OpPrint OpKind = iota
	OpBell
	OpBackspace
	OpTab
	OpLinefeed
	OpCarriageReturn

	OpCursorUp      // N rows
	OpCursorDown    // N rows
	OpCursorForward // N cols
	OpCursorBack    // N cols
	OpCursorNextLine
	OpCursorPrevLine
	OpCursorPos // Row, Col (0-based)
	OpCursorCol // Col (0-based)
	OpCursorRow // Row (0-based)
	OpSaveCursor
	OpRestoreCursor
	OpReverseIndex

	OpEraseDisplay // N: 0 cursor-to-end, 1 start-to-cursor, 2 all
	OpEraseLine    // N: same modes
	OpEraseChars   // N chars at cursor
	OpDeleteChars
	OpInsertChars
	OpInsertLines
	OpDeleteLines
	OpScrollUp
	OpScrollDown
	OpSetScrollRegion // Row = top, Col = bottom (0-based; Col < 0 means last row)

	OpSetAttr   // Attr bit(s) to set
	OpClearAttr // Attr bit(s) to clear
	OpSetFg     // Color (zero value = default)
	OpSetBg
	OpResetStyle

	OpSetMode   // N: DEC private mode code
	OpResetMode

	OpSetTitle // Text
	OpReportCursor
)

// Op is one decoded terminal operation. Only the fields relevant to Kind
// are meaningful.
type Op struct {
	Kind  OpKind
	Ch    rune
	N     int
	Row   int
	Col   int
	Attr  grid.Attr
	Color grid.Color
	Text  string
}

// DEC private mode codes the screen understands. Anything else decodes but
// is ignored downstream.
const (
	ModeAppCursorKeys  = 1
	ModeCursorVisible  = 25
	ModeAltScreen      = 47
	ModeAltScreen2     = 1047
	ModeAltScreenSave  = 1049
	ModeBracketedPaste = 2004
)
