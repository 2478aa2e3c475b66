package grid

import "testing"

// fillRow writes a marker rune across a visible row.
func fillRow(g *Grid, row int, ch rune) {
	for col := 0; col < g.Cols(); col++ {
		g.SetCell(row, col, Cell{Ch: ch})
	}
}

func TestScrollbackNeverExceedsCapacity(t *testing.T) {
	g := New(2, 4, 5)
	for i := 0; i < 6; i++ {
		fillRow(g, 0, rune('a'+i))
		g.ScrollUp(0, 1, true, Color{})
	}

	if got := g.ScrollbackLen(); got != 5 {
		t.Fatalf("expected scrollback capped at 5, got %d", got)
	}
	// Exactly the oldest line dropped; the rest keep their relative order.
	for i := 0; i < 5; i++ {
		want := rune('b' + i)
		if got := g.ScrollbackLine(i).Cells[0].Ch; got != want {
			t.Fatalf("scrollback[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestScrollbackTrimDeferredWhileViewing(t *testing.T) {
	g := New(2, 4, 2)
	fillRow(g, 0, 'a')
	g.ScrollUp(0, 1, true, Color{})
	g.SetViewOffset(1)

	fillRow(g, 0, 'b')
	g.ScrollUp(0, 1, true, Color{})
	fillRow(g, 0, 'c')
	g.ScrollUp(0, 1, true, Color{})

	if got := g.ScrollbackLen(); got != 3 {
		t.Fatalf("expected trim deferred while viewing, len=%d", got)
	}

	g.SetViewOffset(0)
	if got := g.ScrollbackLen(); got != 2 {
		t.Fatalf("expected trim on returning to live view, len=%d", got)
	}
	if got := g.ScrollbackLine(0).Cells[0].Ch; got != 'b' {
		t.Fatalf("expected oldest retained line 'b', got %q", got)
	}
}

func TestViewOffsetClamped(t *testing.T) {
	g := New(2, 4, 10)
	fillRow(g, 0, 'a')
	g.ScrollUp(0, 1, true, Color{})

	g.ScrollView(100)
	if got := g.ViewOffset(); got != 1 {
		t.Fatalf("expected offset clamped to history length 1, got %d", got)
	}
	g.ScrollView(-100)
	if got := g.ViewOffset(); got != 0 {
		t.Fatalf("expected offset clamped at 0, got %d", got)
	}
}

func TestResizeNarrowerKeepsColumnsAndClearsWrap(t *testing.T) {
	g := New(2, 6, 0)
	for col, ch := range "abcdef" {
		g.SetCell(0, col, Cell{Ch: ch})
	}
	g.SetWrapped(0, true)

	g.Resize(2, 4)

	if g.Cols() != 4 {
		t.Fatalf("cols = %d, want 4", g.Cols())
	}
	for col, want := range "abcd" {
		if got := g.Cell(0, col).Ch; got != want {
			t.Fatalf("cell(0,%d) = %q, want %q", col, got, want)
		}
	}
	if g.Line(0).Wrapped {
		t.Fatalf("wrap flag should not survive a narrowing resize")
	}
}

func TestResizeWiderPadsWithBlanks(t *testing.T) {
	g := New(2, 3, 0)
	g.SetCell(0, 0, Cell{Ch: 'x'})
	g.Resize(3, 5)

	if g.Rows() != 3 || g.Cols() != 5 {
		t.Fatalf("size = %dx%d, want 3x5", g.Rows(), g.Cols())
	}
	if got := g.Cell(0, 0).Ch; got != 'x' {
		t.Fatalf("content lost on grow: %q", got)
	}
	if got := g.Cell(0, 4).Ch; got != ' ' {
		t.Fatalf("expected blank padding, got %q", got)
	}
	if got := g.Cell(2, 0).Ch; got != ' ' {
		t.Fatalf("expected blank padded row, got %q", got)
	}
}

func TestResizeShrinkingRowsEvictsFromTop(t *testing.T) {
	g := New(3, 4, 10)
	fillRow(g, 0, 'a')
	fillRow(g, 1, 'b')
	fillRow(g, 2, 'c')

	g.Resize(2, 4)

	if got := g.ScrollbackLen(); got != 1 {
		t.Fatalf("expected one evicted row, got %d", got)
	}
	if got := g.ScrollbackLine(0).Cells[0].Ch; got != 'a' {
		t.Fatalf("expected top row evicted, got %q", got)
	}
	if got := g.Cell(0, 0).Ch; got != 'b' {
		t.Fatalf("expected rows to shift up, got %q", got)
	}
}

func TestSnapshotDoesNotAliasLiveCells(t *testing.T) {
	g := New(2, 4, 4)
	g.SetCell(0, 0, Cell{Ch: 'x'})
	snap := g.Snapshot()

	g.SetCell(0, 0, Cell{Ch: 'y'})
	if got := snap.Lines[0].Cells[0].Ch; got != 'x' {
		t.Fatalf("snapshot mutated by live write: %q", got)
	}
}

func TestSnapshotScrollbackWindowCoversView(t *testing.T) {
	g := New(2, 4, 10)
	for i := 0; i < 4; i++ {
		fillRow(g, 0, rune('a'+i))
		g.ScrollUp(0, 1, true, Color{})
	}
	g.SetViewOffset(2)

	snap := g.Snapshot()
	if snap.ViewOffset != 2 || snap.ScrollbackLen != 4 {
		t.Fatalf("snapshot meta = offset %d len %d", snap.ViewOffset, snap.ScrollbackLen)
	}
	if len(snap.Scrollback) != 2 {
		t.Fatalf("expected 2-line history window, got %d", len(snap.Scrollback))
	}
	if got := snap.Scrollback[0].Cells[0].Ch; got != 'c' {
		t.Fatalf("window should start at the viewed line, got %q", got)
	}
}
