// Package screen applies decoded operations to a cell grid. It owns the
// cursor, the current rendition, the scroll region, and the alternate
// screen; it is the single mutation point for everything a renderer reads.
package screen

import (
	"fmt"
	"sync"

	"github.com/mattn/go-runewidth"

	"qterm/ansi"
	"qterm/bidi"
	"qterm/grid"
)

// Classifier reports the display direction of a completed line.
type Classifier func(string) grid.Direction

type Screen struct {
	mu sync.Mutex

	main *grid.Grid
	alt  *grid.Grid
	altActive bool

	// curCol may sit one past the last column: the pending-wrap state. The
	// wrap only happens when the next printable character arrives.
	curRow, curCol int
	style          grid.Style

	scrollTop, scrollBot int

	savedRow, savedCol int
	savedStyle         grid.Style

	cursorHidden   bool
	appCursorKeys  bool
	bracketedPaste bool

	title string

	classify Classifier
	respond  func([]byte) // cursor-position reports travel back to the child
}

func New(rows, cols, scrollback int) *Screen {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return &Screen{
		main:      grid.New(rows, cols, scrollback),
		scrollBot: rows - 1,
		classify:  bidi.Classify,
	}
}

// SetClassifier replaces the line-direction classifier. A nil classifier
// disables direction caching.
func (s *Screen) SetClassifier(c Classifier) {
	s.mu.Lock()
	s.classify = c
	s.mu.Unlock()
}

// SetResponder sets the writer used to answer device status reports.
func (s *Screen) SetResponder(w func([]byte)) {
	s.mu.Lock()
	s.respond = w
	s.mu.Unlock()
}

func (s *Screen) active() *grid.Grid {
	if s.altActive {
		return s.alt
	}
	return s.main
}

func (s *Screen) Size() (rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.main.Rows(), s.main.Cols()
}

func (s *Screen) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *Screen) AppCursorKeys() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appCursorKeys
}

func (s *Screen) BracketedPaste() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bracketedPaste
}

// Apply performs ops in order. It is the only writer of grid state; the
// session's reader goroutine calls it with each decoded chunk.
func (s *Screen) Apply(ops []ansi.Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		s.apply(op)
	}
}

func (s *Screen) apply(op ansi.Op) {
	g := s.active()
	switch op.Kind {
	case ansi.OpPrint:
		s.putChar(op.Ch)
	case ansi.OpLinefeed:
		s.lineFeed()
	case ansi.OpCarriageReturn:
		s.curCol = 0
	case ansi.OpBackspace:
		if s.curCol > g.Cols()-1 {
			s.curCol = g.Cols() - 1
		}
		if s.curCol > 0 {
			s.curCol--
		}
	case ansi.OpTab:
		next := ((s.curCol / 8) + 1) * 8
		if next >= g.Cols() {
			next = g.Cols() - 1
		}
		s.curCol = next
	case ansi.OpBell:
		// Audible bell has no grid effect.

	case ansi.OpCursorUp:
		s.moveCursor(-op.N, 0)
	case ansi.OpCursorDown:
		s.moveCursor(op.N, 0)
	case ansi.OpCursorForward:
		s.moveCursor(0, op.N)
	case ansi.OpCursorBack:
		s.moveCursor(0, -op.N)
	case ansi.OpCursorNextLine:
		s.moveCursor(op.N, 0)
		s.curCol = 0
	case ansi.OpCursorPrevLine:
		s.moveCursor(-op.N, 0)
		s.curCol = 0
	case ansi.OpCursorPos:
		s.curRow, s.curCol = op.Row, op.Col
		s.clampCursor()
	case ansi.OpCursorCol:
		s.curCol = op.Col
		s.clampCursor()
	case ansi.OpCursorRow:
		s.curRow = op.Row
		s.clampCursor()
	case ansi.OpSaveCursor:
		s.savedRow, s.savedCol = s.curRow, s.curCol
		s.savedStyle = s.style
	case ansi.OpRestoreCursor:
		s.curRow, s.curCol = s.savedRow, s.savedCol
		s.style = s.savedStyle
		s.clampCursor()
	case ansi.OpReverseIndex:
		if s.curRow == s.scrollTop {
			g.ScrollDown(s.scrollTop, s.scrollBot, s.style.Bg)
		} else if s.curRow > 0 {
			s.curRow--
		}

	case ansi.OpEraseDisplay:
		s.eraseDisplay(op.N)
	case ansi.OpEraseLine:
		s.eraseLine(op.N)
	case ansi.OpEraseChars:
		col := s.clampedCol()
		g.FillRow(s.curRow, col, col+op.N, s.style.Bg)
	case ansi.OpDeleteChars:
		s.deleteChars(op.N)
	case ansi.OpInsertChars:
		s.insertChars(op.N)
	case ansi.OpInsertLines:
		for i := 0; i < op.N; i++ {
			g.ScrollDown(s.curRow, s.scrollBot, s.style.Bg)
		}
	case ansi.OpDeleteLines:
		for i := 0; i < op.N; i++ {
			g.ScrollUp(s.curRow, s.scrollBot, false, s.style.Bg)
		}
	case ansi.OpScrollUp:
		for i := 0; i < op.N; i++ {
			g.ScrollUp(s.scrollTop, s.scrollBot, s.evictOnScroll(), s.style.Bg)
		}
	case ansi.OpScrollDown:
		for i := 0; i < op.N; i++ {
			g.ScrollDown(s.scrollTop, s.scrollBot, s.style.Bg)
		}
	case ansi.OpSetScrollRegion:
		top, bot := op.Row, op.Col
		if bot < 0 || bot >= g.Rows() {
			bot = g.Rows() - 1
		}
		if top < 0 {
			top = 0
		}
		if top >= bot {
			top, bot = 0, g.Rows()-1
		}
		s.scrollTop, s.scrollBot = top, bot

	case ansi.OpSetAttr:
		s.style.Attrs |= op.Attr
	case ansi.OpClearAttr:
		s.style.Attrs &^= op.Attr
	case ansi.OpSetFg:
		s.style.Fg = op.Color
	case ansi.OpSetBg:
		s.style.Bg = op.Color
	case ansi.OpResetStyle:
		s.style = grid.Style{}

	case ansi.OpSetMode:
		s.setMode(op.N, true)
	case ansi.OpResetMode:
		s.setMode(op.N, false)

	case ansi.OpSetTitle:
		s.title = op.Text
	case ansi.OpReportCursor:
		if s.respond != nil {
			s.respond([]byte(fmt.Sprintf("\x1b[%d;%dR", s.curRow+1, s.clampedCol()+1)))
		}
	}
}

func (s *Screen) putChar(ch rune) {
	w := runewidth.RuneWidth(ch)
	if w <= 0 {
		return // combining marks and zero-width runes are not represented
	}
	g := s.active()
	if s.curCol+w > g.Cols() {
		s.lineFeed()
		g.SetWrapped(s.curRow, true)
		s.curCol = 0
	}
	g.SetCell(s.curRow, s.curCol, grid.Cell{Ch: ch, Style: s.style})
	if w == 2 && s.curCol+1 < g.Cols() {
		// Continuation half of a wide rune stays blank.
		g.SetCell(s.curRow, s.curCol+1, grid.BlankCell(s.style.Bg))
	}
	s.curCol += w
}

func (s *Screen) lineFeed() {
	g := s.active()
	s.classifyRow(s.curRow)
	if s.curRow == s.scrollBot {
		g.ScrollUp(s.scrollTop, s.scrollBot, s.evictOnScroll(), s.style.Bg)
	} else if s.curRow < g.Rows()-1 {
		s.curRow++
	}
}

// evictOnScroll reports whether a row scrolled off the top enters history.
// Only full-screen scrolls on the main screen do; region scrolls and the
// alternate screen discard the row.
func (s *Screen) evictOnScroll() bool {
	return !s.altActive && s.scrollTop == 0 && s.scrollBot == s.main.Rows()-1
}

func (s *Screen) classifyRow(row int) {
	if s.classify == nil {
		return
	}
	g := s.active()
	if row < 0 || row >= g.Rows() {
		return
	}
	g.SetDir(row, s.classify(g.Line(row).Text()))
}

// moveCursor is relative motion; it clamps and cancels any pending wrap.
func (s *Screen) moveCursor(dr, dc int) {
	s.curRow += dr
	s.curCol += dc
	s.clampCursor()
}

func (s *Screen) clampCursor() {
	g := s.active()
	if s.curRow < 0 {
		s.curRow = 0
	}
	if s.curRow >= g.Rows() {
		s.curRow = g.Rows() - 1
	}
	if s.curCol < 0 {
		s.curCol = 0
	}
	if s.curCol >= g.Cols() {
		s.curCol = g.Cols() - 1
	}
}

func (s *Screen) clampedCol() int {
	if c := s.active().Cols() - 1; s.curCol > c {
		return c
	}
	return s.curCol
}

func (s *Screen) eraseDisplay(mode int) {
	g := s.active()
	switch mode {
	case 0: // cursor to end
		g.FillRow(s.curRow, s.clampedCol(), g.Cols(), s.style.Bg)
		g.SetWrapped(s.curRow, false)
		for r := s.curRow + 1; r < g.Rows(); r++ {
			g.FillRow(r, 0, g.Cols(), s.style.Bg)
			g.SetWrapped(r, false)
		}
	case 1: // start to cursor
		for r := 0; r < s.curRow; r++ {
			g.FillRow(r, 0, g.Cols(), s.style.Bg)
			g.SetWrapped(r, false)
		}
		g.FillRow(s.curRow, 0, s.clampedCol()+1, s.style.Bg)
	default: // 2 and the xterm 3 variant clear everything visible
		for r := 0; r < g.Rows(); r++ {
			g.FillRow(r, 0, g.Cols(), s.style.Bg)
			g.SetWrapped(r, false)
		}
	}
}

func (s *Screen) eraseLine(mode int) {
	g := s.active()
	switch mode {
	case 0:
		g.FillRow(s.curRow, s.clampedCol(), g.Cols(), s.style.Bg)
		// Erasing through the end of the row breaks its continuation.
		g.SetWrapped(s.curRow, false)
	case 1:
		g.FillRow(s.curRow, 0, s.clampedCol()+1, s.style.Bg)
	default:
		g.FillRow(s.curRow, 0, g.Cols(), s.style.Bg)
		g.SetWrapped(s.curRow, false)
	}
}

func (s *Screen) deleteChars(n int) {
	g := s.active()
	row := g.Line(s.curRow).Cells
	col := s.clampedCol()
	if n > len(row)-col {
		n = len(row) - col
	}
	copy(row[col:], row[col+n:])
	blank := grid.BlankCell(s.style.Bg)
	for i := len(row) - n; i < len(row); i++ {
		row[i] = blank
	}
}

func (s *Screen) insertChars(n int) {
	g := s.active()
	row := g.Line(s.curRow).Cells
	col := s.clampedCol()
	if n > len(row)-col {
		n = len(row) - col
	}
	copy(row[col+n:], row[col:])
	blank := grid.BlankCell(s.style.Bg)
	for i := col; i < col+n; i++ {
		row[i] = blank
	}
}

func (s *Screen) setMode(code int, set bool) {
	switch code {
	case ansi.ModeAppCursorKeys:
		s.appCursorKeys = set
	case ansi.ModeCursorVisible:
		s.cursorHidden = !set
	case ansi.ModeAltScreen, ansi.ModeAltScreen2:
		if set {
			s.enterAlt()
		} else {
			s.exitAlt()
		}
	case ansi.ModeAltScreenSave:
		if set {
			s.savedRow, s.savedCol = s.curRow, s.curCol
			s.savedStyle = s.style
			s.enterAlt()
		} else {
			s.exitAlt()
			s.curRow, s.curCol = s.savedRow, s.savedCol
			s.style = s.savedStyle
			s.clampCursor()
		}
	case ansi.ModeBracketedPaste:
		s.bracketedPaste = set
	}
}

func (s *Screen) enterAlt() {
	if s.altActive {
		return
	}
	// The alternate screen keeps no history; full-screen programs manage
	// their own viewport.
	s.alt = grid.New(s.main.Rows(), s.main.Cols(), 0)
	s.altActive = true
	s.scrollTop, s.scrollBot = 0, s.main.Rows()-1
	s.curRow, s.curCol = 0, 0
}

func (s *Screen) exitAlt() {
	if !s.altActive {
		return
	}
	s.alt = nil
	s.altActive = false
	s.scrollTop, s.scrollBot = 0, s.main.Rows()-1
	s.clampCursor()
}

// Resize changes the viewport size, clamps the cursor, and resets the
// scroll region to the full screen.
func (s *Screen) Resize(rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.main.Resize(rows, cols)
	if s.alt != nil {
		s.alt.Resize(rows, cols)
	}
	s.scrollTop, s.scrollBot = 0, s.active().Rows()-1
	s.clampCursor()
}

// ScrollView moves the scrollback view offset; it is inert on the
// alternate screen.
func (s *Screen) ScrollView(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.altActive {
		return
	}
	s.main.ScrollView(delta)
}

func (s *Screen) ViewOffset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.main.ViewOffset()
}

// Snapshot is everything a renderer needs for one frame.
type Snapshot struct {
	grid.Snapshot
	CursorRow     int
	CursorCol     int
	CursorVisible bool
	AltScreen     bool
	Title         string
}

// Snapshot copies the visible state under the lock and releases it before
// any drawing happens.
func (s *Screen) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Snapshot:      s.active().Snapshot(),
		CursorRow:     s.curRow,
		CursorCol:     s.clampedCol(),
		CursorVisible: !s.cursorHidden,
		AltScreen:     s.altActive,
		Title:         s.title,
	}
}

// ContentText extracts the text between two content positions, where row 0
// is the oldest scrollback line and live rows follow history. Trailing
// blanks per row are trimmed.
func (s *Screen) ContentText(startRow, startCol, endRow, endCol int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := ""
	for row := startRow; row <= endRow; row++ {
		line, ok := s.contentLine(row)
		if !ok {
			continue
		}
		from, to := 0, len(line.Cells)
		if row == startRow {
			from = startCol
		}
		if row == endRow {
			to = endCol + 1
		}
		if from < 0 {
			from = 0
		}
		if to > len(line.Cells) {
			to = len(line.Cells)
		}
		if from > to {
			from = to
		}
		text := grid.Line{Cells: line.Cells[from:to]}.Text()
		if row > startRow {
			out += "\n"
		}
		out += text
	}
	return out
}

func (s *Screen) contentLine(row int) (*grid.Line, bool) {
	g := s.active()
	if row < 0 {
		return nil, false
	}
	if !s.altActive && row < g.ScrollbackLen() {
		return g.ScrollbackLine(row), true
	}
	if !s.altActive {
		row -= g.ScrollbackLen()
	}
	if row < g.Rows() {
		return g.Line(row), true
	}
	return nil, false
}
