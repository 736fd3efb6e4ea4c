// Package layout provides the built-in node layouts. Every layout writes
// Node.Position in place and keeps nodes inside the given area.
package layout

import (
	"context"
	"math"

	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/plugin"
)

const (
	IDGrid     = "grid"
	IDCircular = "circular"
	IDTree     = "tree"
	IDForce    = "force"
)

// All returns one instance of every built-in layout.
func All() []plugin.Layout {
	return []plugin.Layout{Grid{}, Circular{}, Tree{}, NewForce(0), Preset{}}
}

// Grid places nodes row by row in a near-square grid.
type Grid struct{}

func (Grid) ID() string          { return IDGrid }
func (Grid) Name() string        { return "Grid" }
func (Grid) Description() string { return "Rows and columns in node order" }

func (Grid) Apply(_ context.Context, data *graph.Data, area graph.Rect) error {
	n := len(data.Nodes)
	if n == 0 {
		return nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	cellW := area.Width / float64(cols)
	cellH := area.Height / float64(rows)
	for i := range data.Nodes {
		col, row := i%cols, i/cols
		place(&data.Nodes[i], area.X+(float64(col)+0.5)*cellW, area.Y+(float64(row)+0.5)*cellH)
	}
	return nil
}

// Circular spaces nodes evenly on a circle around the area center.
type Circular struct{}

func (Circular) ID() string          { return IDCircular }
func (Circular) Name() string        { return "Circular" }
func (Circular) Description() string { return "Nodes evenly spaced on a circle" }

func (Circular) Apply(_ context.Context, data *graph.Data, area graph.Rect) error {
	n := len(data.Nodes)
	c := area.Center()
	if n == 1 {
		place(&data.Nodes[0], c.X, c.Y)
		return nil
	}
	radius := math.Min(area.Width, area.Height) * 0.4
	for i := range data.Nodes {
		angle := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
		place(&data.Nodes[i], c.X+radius*math.Cos(angle), c.Y+radius*math.Sin(angle))
	}
	return nil
}

func place(n *graph.Node, x, y float64) {
	n.Position = &graph.Point{X: x, Y: y}
}

// ByID returns the built-in layout with the given id.
func ByID(id string) (plugin.Layout, bool) {
	for _, l := range All() {
		if l.ID() == id {
			return l, true
		}
	}
	return nil, false
}
