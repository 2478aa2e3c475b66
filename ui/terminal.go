package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"qterm/config"
	"qterm/grid"
	"qterm/session"
)

// OutputEvent is posted to the tcell event loop when the session applied
// new child output; the receiver redraws. Events coalesce: a dropped post
// is covered by the next one.
type OutputEvent struct {
	tcell.EventTime
}

// StateEvent is posted when the session changes lifecycle state.
type StateEvent struct {
	tcell.EventTime
	Old, New session.State
}

// Terminal draws a session's screen into a tcell region and routes input
// back to it. All drawing works from snapshots; the widget never holds the
// screen lock across a draw call.
type Terminal struct {
	sess    *session.Session
	Theme   *config.ColorScheme
	focused bool

	x, y, w, h int

	// Mouse selection, in content coordinates (scrollback first, then live).
	selecting   bool
	selStartRow int
	selStartCol int
	selEndRow   int
	selEndCol   int
}

func NewTerminal(sess *session.Session, theme *config.ColorScheme) *Terminal {
	return &Terminal{sess: sess, Theme: theme, focused: !sess.Options().Hidden}
}

func (t *Terminal) Session() *session.Session { return t.sess }

func (t *Terminal) IsFocused() bool   { return t.focused }
func (t *Terminal) SetFocused(f bool) { t.focused = f }

// Attach wires the session's notifications into the tcell event queue.
func (t *Terminal) Attach(screen tcell.Screen) {
	t.sess.OnOutput(func() {
		ev := &OutputEvent{}
		ev.SetEventNow()
		// PostEvent may drop under a full queue; the next chunk's event
		// triggers the same redraw, so the reader never blocks here.
		_ = screen.PostEvent(ev)
	})
	t.sess.OnState(func(old, new session.State) {
		ev := &StateEvent{Old: old, New: new}
		ev.SetEventNow()
		_ = screen.PostEvent(ev)
	})
}

func (t *Terminal) theme() *config.ColorScheme {
	if t.Theme != nil {
		return t.Theme
	}
	return config.Themes["monokai"]
}

// cellStyle converts a cell's colors and attributes to tcell, substituting
// the theme for default colors.
func cellStyle(c grid.Cell, theme *config.ColorScheme) tcell.Style {
	st := tcell.StyleDefault.Foreground(termColor(c.Style.Fg, theme.Foreground)).
		Background(termColor(c.Style.Bg, theme.Background))
	a := c.Style.Attrs
	if a&grid.AttrBold != 0 {
		st = st.Bold(true)
	}
	if a&grid.AttrUnderline != 0 {
		st = st.Underline(true)
	}
	if a&grid.AttrReverse != 0 {
		st = st.Reverse(true)
	}
	if a&grid.AttrItalic != 0 {
		st = st.Italic(true)
	}
	return st
}

func termColor(c grid.Color, def tcell.Color) tcell.Color {
	switch c.Mode {
	case grid.ColorModeIndexed:
		return tcell.PaletteColor(int(c.Value))
	case grid.ColorModeRGB:
		r, g, b := c.RGB()
		return tcell.NewRGBColor(int32(r), int32(g), int32(b))
	default:
		return def
	}
}

// Render draws one frame: a separator line carrying the child's title (and
// the scrollback indicator when viewing history), then the grid rows.
func (t *Terminal) Render(screen tcell.Screen, x, y, width, height int) {
	t.x, t.y, t.w, t.h = x, y, width, height

	theme := t.theme()
	snap := t.sess.Screen().Snapshot()

	sepStyle := tcell.StyleDefault.Background(theme.Background).Foreground(theme.Border)
	for cx := x; cx < x+width; cx++ {
		screen.SetContent(cx, y, '─', nil, sepStyle)
	}
	if snap.Title != "" {
		title := " " + snap.Title + " "
		for i, ch := range title {
			if x+1+i >= x+width {
				break
			}
			screen.SetContent(x+1+i, y, ch, nil, sepStyle)
		}
	}

	renderRows := len(snap.Lines)
	if renderRows > height-1 {
		renderRows = height - 1
	}

	// Content rows visible this frame: the tail of history reachable at
	// the current view offset, then live rows.
	combined := append(snap.Scrollback, snap.Lines...)
	firstContent := snap.ScrollbackLen - len(snap.Scrollback)

	bgStyle := tcell.StyleDefault.Background(theme.Background)
	for row := 0; row < renderRows; row++ {
		contentRow := firstContent + row
		var line *grid.Line
		if row < len(combined) {
			line = &combined[row]
		}
		col := 0
		for col < width {
			if line == nil || col >= len(line.Cells) {
				screen.SetContent(x+col, y+1+row, ' ', nil, bgStyle)
				col++
				continue
			}
			cell := line.Cells[col]
			st := t.selectionStyle(contentRow, col, cellStyle(cell, theme))
			ch := cell.Ch
			if ch == 0 {
				ch = ' '
			}
			screen.SetContent(x+col, y+1+row, ch, nil, st)
			if w := runewidth.RuneWidth(ch); w == 2 {
				col += 2 // continuation half belongs to the wide rune
			} else {
				col++
			}
		}
	}
	for row := renderRows; row < height-1; row++ {
		for col := 0; col < width; col++ {
			screen.SetContent(x+col, y+1+row, ' ', nil, bgStyle)
		}
	}

	if snap.ViewOffset > 0 {
		indicator := fmt.Sprintf(" ↑ %d lines ", snap.ViewOffset)
		indStyle := tcell.StyleDefault.Background(theme.IndicatorBg).Foreground(theme.IndicatorFg).Bold(true)
		indX := x + width - runewidth.StringWidth(indicator)
		for i, ch := range indicator {
			if indX+i >= x && indX+i < x+width {
				screen.SetContent(indX+i, y, ch, nil, indStyle)
			}
		}
	}

	if t.focused && snap.CursorVisible && snap.ViewOffset == 0 &&
		snap.CursorRow < renderRows && snap.CursorCol < width {
		screen.ShowCursor(x+snap.CursorCol, y+1+snap.CursorRow)
	} else {
		screen.HideCursor()
	}
}

// HandleKey consumes a key event when focused. Shift+PgUp/PgDn page the
// scrollback view; everything else is encoded for the child.
func (t *Terminal) HandleKey(ev *tcell.EventKey) bool {
	if !t.focused {
		return false
	}

	rows, _ := t.sess.Screen().Size()
	if ev.Modifiers()&tcell.ModShift != 0 {
		switch ev.Key() {
		case tcell.KeyPgUp:
			t.sess.Screen().ScrollView(rows)
			return true
		case tcell.KeyPgDn:
			t.sess.Screen().ScrollView(-rows)
			return true
		}
	}
	if ev.Modifiers()&(tcell.ModCtrl|tcell.ModShift) == tcell.ModCtrl|tcell.ModShift {
		switch ev.Key() {
		case tcell.KeyCtrlC:
			t.CopySelection()
			return true
		case tcell.KeyCtrlV:
			t.PasteClipboard()
			return true
		}
	}

	_ = t.sess.SendKey(ev)
	return true
}

func (t *Terminal) HandleMouse(ev *tcell.EventMouse) bool {
	mx, my := ev.Position()
	if my < t.y || my >= t.y+t.h {
		return false
	}

	switch ev.Buttons() {
	case tcell.WheelUp:
		t.sess.Screen().ScrollView(3)
		return true
	case tcell.WheelDown:
		t.sess.Screen().ScrollView(-3)
		return true
	case tcell.Button1:
		row, col, ok := t.mouseToContent(mx, my)
		if ok {
			if !t.selecting {
				t.selStartRow, t.selStartCol = row, col
				t.selEndRow, t.selEndCol = row, col
				t.selecting = true
			} else {
				t.selEndRow, t.selEndCol = row, col
			}
		}
		return true
	case tcell.ButtonNone:
		t.selecting = false
		return true
	}
	return true
}

// mouseToContent maps a screen position to content coordinates under the
// current view offset.
func (t *Terminal) mouseToContent(mx, my int) (int, int, bool) {
	rows, cols := t.sess.Screen().Size()
	if cols <= 0 {
		return 0, 0, false
	}
	renderRows := rows
	if renderRows > t.h-1 {
		renderRows = t.h - 1
	}
	row := my - (t.y + 1)
	if row < 0 || row >= renderRows {
		return 0, 0, false
	}
	col := mx - t.x
	if col < 0 {
		col = 0
	}
	if col >= cols {
		col = cols - 1
	}

	scr := t.sess.Screen()
	contentRow := scr.Snapshot().ScrollbackLen - scr.ViewOffset() + row
	if contentRow < 0 {
		return 0, 0, false
	}
	return contentRow, col, true
}

func (t *Terminal) hasSelection() bool {
	return t.selStartRow != t.selEndRow || t.selStartCol != t.selEndCol
}

func (t *Terminal) normalizedSelection() (int, int, int, int, bool) {
	if !t.hasSelection() {
		return 0, 0, 0, 0, false
	}
	sr, sc := t.selStartRow, t.selStartCol
	er, ec := t.selEndRow, t.selEndCol
	if er < sr || (er == sr && ec < sc) {
		sr, sc, er, ec = er, ec, sr, sc
	}
	return sr, sc, er, ec, true
}

func (t *Terminal) selectionStyle(row, col int, base tcell.Style) tcell.Style {
	sr, sc, er, ec, ok := t.normalizedSelection()
	if !ok {
		return base
	}
	if row < sr || row > er {
		return base
	}
	if row == sr && col < sc {
		return base
	}
	if row == er && col > ec {
		return base
	}
	return base.Reverse(true)
}

// CopySelection extracts the selected text and puts it on the clipboard.
func (t *Terminal) CopySelection() bool {
	sr, sc, er, ec, ok := t.normalizedSelection()
	if !ok {
		return false
	}
	text := t.sess.Screen().ContentText(sr, sc, er, ec)
	if text == "" {
		return false
	}
	writeClipboard(text)
	return true
}

// PasteClipboard forwards the clipboard contents to the child, bracketed
// when the child enabled paste bracketing.
func (t *Terminal) PasteClipboard() bool {
	text := readClipboard()
	if text == "" {
		return false
	}
	return t.sess.Paste(text) == nil
}
