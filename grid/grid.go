package grid

// DefaultScrollback is the scrollback line capacity used when none is
// configured.
const DefaultScrollback = 10000

// Grid is the visible rows x cols matrix of cells plus a bounded ring of
// lines evicted from the top. Oldest scrollback lines are dropped once the
// ring is over capacity; while a viewer holds a non-zero view offset the
// trim is deferred so the viewed region keeps stable indices.
type Grid struct {
	lines      []Line
	rows, cols int

	scrollback []Line
	capacity   int
	viewOffset int // 0 = live, >0 = scrolled up into history
}

func New(rows, cols, scrollback int) *Grid {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	if scrollback < 0 {
		scrollback = 0
	}
	g := &Grid{rows: rows, cols: cols, capacity: scrollback}
	g.lines = make([]Line, rows)
	for i := range g.lines {
		g.lines[i] = newLine(cols, Color{})
	}
	return g
}

func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return g.cols }

// Line returns the visible line at row. The caller must not hold the
// returned slice across mutations.
func (g *Grid) Line(row int) *Line {
	return &g.lines[row]
}

func (g *Grid) Cell(row, col int) Cell {
	return g.lines[row].Cells[col]
}

func (g *Grid) SetCell(row, col int, c Cell) {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return
	}
	g.lines[row].Cells[col] = c
}

func (g *Grid) SetWrapped(row int, wrapped bool) {
	if row >= 0 && row < g.rows {
		g.lines[row].Wrapped = wrapped
	}
}

func (g *Grid) SetDir(row int, d Direction) {
	if row >= 0 && row < g.rows {
		g.lines[row].Dir = d
	}
}

// FillRow blanks columns [from, to) of a row with the given background.
func (g *Grid) FillRow(row, from, to int, bg Color) {
	if row < 0 || row >= g.rows {
		return
	}
	if from < 0 {
		from = 0
	}
	if to > g.cols {
		to = g.cols
	}
	blank := BlankCell(bg)
	for col := from; col < to; col++ {
		g.lines[row].Cells[col] = blank
	}
}

// ScrollUp shifts rows (top, bot] up by one and blanks the bottom row.
// When evict is set the departing top row is pushed into scrollback.
func (g *Grid) ScrollUp(top, bot int, evict bool, bg Color) {
	if top < 0 || bot >= g.rows || top > bot {
		return
	}
	if evict {
		g.pushScrollback(g.lines[top])
	}
	copy(g.lines[top:bot], g.lines[top+1:bot+1])
	g.lines[bot] = newLine(g.cols, bg)
}

// ScrollDown shifts rows [top, bot) down by one and blanks the top row.
func (g *Grid) ScrollDown(top, bot int, bg Color) {
	if top < 0 || bot >= g.rows || top > bot {
		return
	}
	copy(g.lines[top+1:bot+1], g.lines[top:bot])
	g.lines[top] = newLine(g.cols, bg)
}

func (g *Grid) pushScrollback(l Line) {
	if g.capacity == 0 {
		return
	}
	g.scrollback = append(g.scrollback, l.clone())
	if g.viewOffset == 0 {
		g.trimScrollback()
	}
}

func (g *Grid) trimScrollback() {
	if over := len(g.scrollback) - g.capacity; over > 0 {
		g.scrollback = append(g.scrollback[:0], g.scrollback[over:]...)
	}
}

func (g *Grid) ScrollbackLen() int { return len(g.scrollback) }

// ScrollbackLine returns the history line at index (0 = oldest).
func (g *Grid) ScrollbackLine(i int) *Line {
	return &g.scrollback[i]
}

func (g *Grid) ViewOffset() int { return g.viewOffset }

// ScrollView moves the view offset by delta rows (positive = further into
// history) and clamps it. Returning to the live view resumes capacity
// trimming.
func (g *Grid) ScrollView(delta int) {
	g.SetViewOffset(g.viewOffset + delta)
}

func (g *Grid) SetViewOffset(off int) {
	if max := len(g.scrollback); off > max {
		off = max
	}
	if off < 0 {
		off = 0
	}
	g.viewOffset = off
	if g.viewOffset == 0 {
		g.trimScrollback()
	}
}

// Resize changes the viewport dimensions in place. Cell contents are kept
// column-for-column up to the smaller width, rows are truncated or padded,
// and wrap flags are re-derived for rows whose continuation was cut away.
// History is not re-wrapped.
func (g *Grid) Resize(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	if rows == g.rows && cols == g.cols {
		return
	}

	src := g.lines
	// Shrinking rows drops from the top into scrollback so the most recent
	// output stays visible.
	if rows < g.rows {
		cut := g.rows - rows
		for i := 0; i < cut; i++ {
			g.pushScrollback(src[i])
		}
		src = src[cut:]
	}

	lines := make([]Line, rows)
	for i := range lines {
		lines[i] = newLine(cols, Color{})
		if i < len(src) {
			old := src[i]
			copy(lines[i].Cells, old.Cells)
			lines[i].Dir = old.Dir
			// Narrowing cuts the tail that made the row a continuation
			// source, so the wrap flag only survives a same-or-wider resize.
			lines[i].Wrapped = old.Wrapped && cols >= g.cols
		}
	}

	g.lines = lines
	g.rows = rows
	g.cols = cols
}

// Snapshot is a self-contained copy of the grid for rendering; it shares no
// memory with the live grid.
type Snapshot struct {
	Lines         []Line // visible viewport rows
	Scrollback    []Line // history window covering the current view offset
	ScrollbackLen int    // total history length
	ViewOffset    int
}

// Snapshot copies the viewport plus the slice of history the current view
// offset can reach. Callers render from the copy so the grid lock is never
// held across drawing.
func (g *Grid) Snapshot() Snapshot {
	s := Snapshot{
		Lines:         make([]Line, g.rows),
		ScrollbackLen: len(g.scrollback),
		ViewOffset:    g.viewOffset,
	}
	for i, l := range g.lines {
		s.Lines[i] = l.clone()
	}
	if g.viewOffset > 0 {
		start := len(g.scrollback) - g.viewOffset
		if start < 0 {
			start = 0
		}
		for _, l := range g.scrollback[start:] {
			s.Scrollback = append(s.Scrollback, l.clone())
		}
	}
	return s
}
