package screen

import (
	"strings"
	"testing"

	"qterm/ansi"
	"qterm/grid"
)

// feed decodes raw bytes and applies them, the same path the session's
// reader takes.
func feed(s *Screen, raw string) {
	s.Apply(ansi.NewParser().Feed([]byte(raw)))
}

func rowText(snap Snapshot, row int) string {
	return grid.Line{Cells: snap.Lines[row].Cells}.Text()
}

func TestPutCharAdvancesAndStyles(t *testing.T) {
	s := New(4, 10, 0)
	feed(s, "\x1b[31;1mHi\x1b[0m")

	snap := s.Snapshot()
	if got := rowText(snap, 0); got != "Hi" {
		t.Fatalf("row 0 = %q, want Hi", got)
	}
	h := snap.Lines[0].Cells[0]
	if h.Style.Fg != grid.IndexedColor(1) || h.Style.Attrs&grid.AttrBold == 0 {
		t.Fatalf("expected bold red 'H', got %+v", h.Style)
	}

	// Attributes were reset: the next write carries defaults.
	feed(s, "x")
	snap = s.Snapshot()
	x := snap.Lines[0].Cells[2]
	if !x.Style.Fg.IsDefault() || !x.Style.Bg.IsDefault() || x.Style.Attrs != 0 {
		t.Fatalf("expected default style after reset, got %+v", x.Style)
	}
}

func TestExactWidthLineDefersWrap(t *testing.T) {
	s := New(4, 5, 0)
	feed(s, "abcde\r\nx")

	snap := s.Snapshot()
	if got := rowText(snap, 0); got != "abcde" {
		t.Fatalf("row 0 = %q", got)
	}
	if got := rowText(snap, 1); got != "x" {
		t.Fatalf("expected next char on row 1 with no blank line between, got %q", got)
	}
	if snap.Lines[1].Wrapped {
		t.Fatalf("hard newline must not mark the next line wrapped")
	}
}

func TestOverflowingLineWraps(t *testing.T) {
	s := New(4, 5, 0)
	feed(s, "abcdef")

	snap := s.Snapshot()
	if got := rowText(snap, 0); got != "abcde" {
		t.Fatalf("row 0 = %q", got)
	}
	if got := rowText(snap, 1); got != "f" {
		t.Fatalf("row 1 = %q", got)
	}
	if !snap.Lines[1].Wrapped {
		t.Fatalf("continuation line must carry the wrapped flag")
	}
}

func TestCursorAbsolutePositionAndClamp(t *testing.T) {
	s := New(10, 20, 0)
	feed(s, "\x1b[5;10H")
	snap := s.Snapshot()
	if snap.CursorRow != 4 || snap.CursorCol != 9 {
		t.Fatalf("cursor = (%d,%d), want (4,9)", snap.CursorRow, snap.CursorCol)
	}

	feed(s, "\x1b[99;99H")
	snap = s.Snapshot()
	if snap.CursorRow != 9 || snap.CursorCol != 19 {
		t.Fatalf("out-of-range position should clamp, got (%d,%d)", snap.CursorRow, snap.CursorCol)
	}
}

func TestEraseCarriesCurrentBackground(t *testing.T) {
	s := New(4, 8, 0)
	feed(s, "hello\x1b[41m\x1b[2K")

	snap := s.Snapshot()
	for col := 0; col < 8; col++ {
		c := snap.Lines[0].Cells[col]
		if c.Ch != ' ' {
			t.Fatalf("cell %d not blanked: %q", col, c.Ch)
		}
		if c.Style.Bg != grid.IndexedColor(1) {
			t.Fatalf("cell %d lost the current background: %+v", col, c.Style.Bg)
		}
	}
}

func TestNewlineOnLastRowEvictsTopRow(t *testing.T) {
	s := New(3, 10, 100)
	feed(s, "one\r\ntwo\r\nthree\r\nfour")

	snap := s.Snapshot()
	if snap.ScrollbackLen != 1 {
		t.Fatalf("expected one evicted row, got %d", snap.ScrollbackLen)
	}
	if got := s.ContentText(0, 0, 0, 9); got != "one" {
		t.Fatalf("evicted row = %q, want one", got)
	}
	if got := rowText(snap, 2); got != "four" {
		t.Fatalf("bottom row = %q, want four", got)
	}
}

func TestScrollRegionConfinesScrolling(t *testing.T) {
	s := New(5, 10, 100)
	feed(s, "top\x1b[2;4r\x1b[4;1Ha\nb\nc")

	snap := s.Snapshot()
	if got := rowText(snap, 0); got != "top" {
		t.Fatalf("row above region must not move, got %q", got)
	}
	if snap.ScrollbackLen != 0 {
		t.Fatalf("region scroll with full rows pending, scrollback = %d", snap.ScrollbackLen)
	}
}

func TestAltScreenIsolatesMainAndScrollback(t *testing.T) {
	s := New(3, 10, 100)
	feed(s, "main\x1b[?1049h")

	feed(s, "alt\r\n\r\n\r\n\r\n\r\n")
	snap := s.Snapshot()
	if !snap.AltScreen {
		t.Fatalf("expected alt screen active")
	}
	if snap.ScrollbackLen != 0 {
		t.Fatalf("alt screen must not feed scrollback, got %d", snap.ScrollbackLen)
	}

	feed(s, "\x1b[?1049l")
	snap = s.Snapshot()
	if snap.AltScreen {
		t.Fatalf("expected main screen restored")
	}
	if got := rowText(snap, 0); got != "main" {
		t.Fatalf("main contents lost across alt screen: %q", got)
	}
	if snap.CursorCol != 4 {
		t.Fatalf("cursor not restored with 1049, col=%d", snap.CursorCol)
	}
}

func TestCursorVisibilityMode(t *testing.T) {
	s := New(3, 10, 0)
	feed(s, "\x1b[?25l")
	if snap := s.Snapshot(); snap.CursorVisible {
		t.Fatalf("expected cursor hidden")
	}
	feed(s, "\x1b[?25h")
	if snap := s.Snapshot(); !snap.CursorVisible {
		t.Fatalf("expected cursor visible again")
	}
}

func TestInputModesExposed(t *testing.T) {
	s := New(3, 10, 0)
	feed(s, "\x1b[?1h\x1b[?2004h")
	if !s.AppCursorKeys() || !s.BracketedPaste() {
		t.Fatalf("modes not exposed: app=%v paste=%v", s.AppCursorKeys(), s.BracketedPaste())
	}
}

func TestDirectionClassifiedPerCompletedLine(t *testing.T) {
	s := New(4, 10, 0)
	var classified []string
	s.SetClassifier(func(text string) grid.Direction {
		classified = append(classified, text)
		return grid.DirRTL
	})

	feed(s, "abc\r\n")
	if len(classified) != 1 || classified[0] != "abc" {
		t.Fatalf("classifier calls = %v", classified)
	}
	snap := s.Snapshot()
	if snap.Lines[0].Dir != grid.DirRTL {
		t.Fatalf("direction hint not cached on the line")
	}
}

func TestArabicLineClassifiedRTL(t *testing.T) {
	s := New(4, 20, 0)
	feed(s, "مرحبا\r\n")
	snap := s.Snapshot()
	if snap.Lines[0].Dir != grid.DirRTL {
		t.Fatalf("expected default classifier to mark Arabic RTL, got %v", snap.Lines[0].Dir)
	}
}

func TestReportCursorRespondsThroughWriter(t *testing.T) {
	s := New(10, 20, 0)
	var response []byte
	s.SetResponder(func(b []byte) { response = append(response, b...) })

	feed(s, "\x1b[5;10H\x1b[6n")
	if got := string(response); got != "\x1b[5;10R" {
		t.Fatalf("cursor report = %q", got)
	}
}

func TestSetTitle(t *testing.T) {
	s := New(3, 10, 0)
	feed(s, "\x1b]0;qterm\x07")
	if got := s.Title(); got != "qterm" {
		t.Fatalf("title = %q", got)
	}
}

func TestResizeClampsCursor(t *testing.T) {
	s := New(10, 20, 0)
	feed(s, "\x1b[10;20H")
	s.Resize(4, 8)

	snap := s.Snapshot()
	if snap.CursorRow != 3 || snap.CursorCol != 7 {
		t.Fatalf("cursor = (%d,%d) after shrink", snap.CursorRow, snap.CursorCol)
	}
	rows, cols := s.Size()
	if rows != 4 || cols != 8 {
		t.Fatalf("size = %dx%d", rows, cols)
	}
}

func TestDeleteAndInsertChars(t *testing.T) {
	s := New(2, 8, 0)
	feed(s, "abcdef\x1b[1;2H\x1b[2P")
	if got := rowText(s.Snapshot(), 0); got != "adef" {
		t.Fatalf("after delete: %q", got)
	}

	feed(s, "\x1b[2@")
	if got := rowText(s.Snapshot(), 0); got != "a  def" {
		t.Fatalf("after insert: %q", got)
	}
}

func TestWideRuneOccupiesTwoColumns(t *testing.T) {
	s := New(2, 6, 0)
	feed(s, "日x")
	snap := s.Snapshot()
	if snap.Lines[0].Cells[0].Ch != '日' {
		t.Fatalf("wide rune missing: %q", snap.Lines[0].Cells[0].Ch)
	}
	if snap.Lines[0].Cells[2].Ch != 'x' {
		t.Fatalf("expected following char at column 2, got %q", snap.Lines[0].Cells[2].Ch)
	}
}

func TestContentTextJoinsRows(t *testing.T) {
	s := New(3, 10, 100)
	feed(s, "aaa\r\nbbb\r\nccc\r\nddd")

	// Content row 0 is the evicted "aaa"; rows 1-3 are live.
	got := s.ContentText(0, 0, 2, 9)
	want := "aaa\nbbb\nccc"
	if got != want {
		t.Fatalf("content = %q, want %q", got, want)
	}
	if !strings.Contains(s.ContentText(3, 0, 3, 9), "ddd") {
		t.Fatalf("live row addressing broken")
	}
}
