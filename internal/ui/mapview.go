package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/five82/beacon/internal/geo"
)

const (
	tileSize = 256.0
	// A terminal cell is roughly twice as tall as it is wide.
	cellWidthPx  = 8.0
	cellHeightPx = 16.0
	// Web Mercator is undefined at the poles.
	maxMercatorLat = 85.05112878
)

const (
	glyphEmpty  = ' '
	glyphDot    = '·'
	glyphVLine  = '│'
	glyphHLine  = '─'
	glyphCross  = '┼'
	glyphCenter = '+'
	glyphFix    = '●'
)

// graticuleSteps are the candidate spacings, in degrees, between grid lines.
var graticuleSteps = []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 45}

// project converts p to Web Mercator world pixels at zoom.
func project(p geo.Position, zoom int) (x, y float64) {
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, p.Latitude))
	scale := tileSize * math.Exp2(float64(zoom))
	x = (p.Longitude + 180) / 360 * scale
	sin := math.Sin(lat * math.Pi / 180)
	y = (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * scale
	return x, y
}

// unproject converts world pixels back to a position.
func unproject(x, y float64, zoom int) geo.Position {
	scale := tileSize * math.Exp2(float64(zoom))
	lng := x/scale*360 - 180
	n := math.Pi * (1 - 2*y/scale)
	lat := math.Atan(math.Sinh(n)) * 180 / math.Pi
	return geo.Position{Latitude: lat, Longitude: lng}
}

// cellFor locates p on a w×h grid centered on center. ok is false when p
// falls outside the grid; col and row are still returned unclamped.
func cellFor(center, p geo.Position, zoom, w, h int) (col, row int, ok bool) {
	cx, cy := project(center, zoom)
	px, py := project(p, zoom)
	col = w/2 + int(math.Round((px-cx)/cellWidthPx))
	row = h/2 + int(math.Round((py-cy)/cellHeightPx))
	ok = col >= 0 && col < w && row >= 0 && row < h
	return col, row, ok
}

// graticuleStep picks a grid spacing that leaves roughly ten columns
// between vertical lines.
func graticuleStep(zoom int) float64 {
	degPerCol := cellWidthPx * 360 / (tileSize * math.Exp2(float64(zoom)))
	want := degPerCol * 10
	for _, s := range graticuleSteps {
		if s >= want {
			return s
		}
	}
	return graticuleSteps[len(graticuleSteps)-1]
}

// mapGrid is the unstyled map panel.
type mapGrid struct {
	cells [][]rune
	// fixCol/fixRow hold the marker cell, or -1 when there is no fix.
	fixCol, fixRow int
	// offGrid is set when the fix lies outside the panel; the marker is
	// then an arrow on the edge pointing toward it.
	offGrid bool
}

// buildGrid lays out graticule lines, the view center and the fix.
func buildGrid(center geo.Position, zoom, w, h int, fix *geo.Position) mapGrid {
	g := mapGrid{fixCol: -1, fixRow: -1}
	if w <= 0 || h <= 0 {
		return g
	}

	cx, cy := project(center, zoom)
	step := graticuleStep(zoom)

	colLine := make([]bool, w)
	prev := math.NaN()
	for c := 0; c < w; c++ {
		x := cx + float64(c-w/2)*cellWidthPx
		bucket := math.Floor(unproject(x, cy, zoom).Longitude / step)
		if !math.IsNaN(prev) && bucket != prev {
			colLine[c] = true
		}
		prev = bucket
	}
	rowLine := make([]bool, h)
	prev = math.NaN()
	for r := 0; r < h; r++ {
		y := cy + float64(r-h/2)*cellHeightPx
		bucket := math.Floor(unproject(cx, y, zoom).Latitude / step)
		if !math.IsNaN(prev) && bucket != prev {
			rowLine[r] = true
		}
		prev = bucket
	}

	g.cells = make([][]rune, h)
	for r := range g.cells {
		row := make([]rune, w)
		for c := range row {
			switch {
			case colLine[c] && rowLine[r]:
				row[c] = glyphCross
			case colLine[c]:
				row[c] = glyphVLine
			case rowLine[r]:
				row[c] = glyphHLine
			case r%2 == 0 && c%4 == 0:
				row[c] = glyphDot
			default:
				row[c] = glyphEmpty
			}
		}
		g.cells[r] = row
	}
	g.cells[h/2][w/2] = glyphCenter

	if fix == nil {
		return g
	}
	col, row, ok := cellFor(center, *fix, zoom, w, h)
	if ok {
		g.cells[row][col] = glyphFix
		g.fixCol, g.fixRow = col, row
		return g
	}
	g.offGrid = true
	g.fixCol = clampInt(col, 0, w-1)
	g.fixRow = clampInt(row, 0, h-1)
	g.cells[g.fixRow][g.fixCol] = edgeArrow(col, row, w, h)
	return g
}

func edgeArrow(col, row, w, h int) rune {
	west, east := col < 0, col >= w
	north, south := row < 0, row >= h
	switch {
	case north && west:
		return '↖'
	case north && east:
		return '↗'
	case south && west:
		return '↙'
	case south && east:
		return '↘'
	case north:
		return '↑'
	case south:
		return '↓'
	case west:
		return '←'
	default:
		return '→'
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// renderMap draws the map panel for the current view and fix.
func (m Model) renderMap(width, height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)

	view := m.viewState
	loc := m.snapshot.Location
	var fix *geo.Position
	if loc.HasPosition {
		p := loc.Position
		fix = &p
	}

	g := buildGrid(view.Center, view.Zoom, width, height, fix)
	lines := make([]string, 0, height)
	for r, row := range g.cells {
		var b strings.Builder
		for c, ch := range row {
			s := string(ch)
			switch {
			case r == g.fixRow && c == g.fixCol:
				b.WriteString(bg.Render(s, styles.Marker))
			case ch == glyphCenter:
				b.WriteString(bg.Render(s, styles.AccentText))
			case ch == glyphEmpty:
				b.WriteString(bg.Space())
			default:
				b.WriteString(bg.Render(s, styles.FaintText))
			}
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// renderMapInfo lists coordinates under the map panel.
func (m Model) renderMapInfo() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	view := m.viewState
	loc := m.snapshot.Location

	parts := []string{
		bg.Render("Center", styles.MutedText) + bg.Space() + bg.Render(view.Center.String(), styles.Text),
		bg.Render("Zoom", styles.MutedText) + bg.Space() + bg.Render(fmt.Sprintf("%d", view.Zoom), styles.Text),
	}
	if loc.HasPosition {
		parts = append(parts,
			bg.Render("●", styles.Marker)+bg.Space()+
				bg.Render("You are here", styles.Text)+bg.Space()+
				bg.Render(loc.Position.String(), styles.AccentText))
	}
	if loc.CycleID != "" {
		parts = append(parts, bg.Render("Cycle", styles.FaintText)+bg.Space()+bg.Render(shortID(loc.CycleID), styles.FaintText))
	}
	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
