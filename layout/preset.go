package layout

import (
	"context"
	"math"

	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/plugin"
)

const IDPreset = "preset"

// Preset keeps positions the nodes already carry. Nodes without one are
// laid out on a grid.
type Preset struct{}

func (Preset) ID() string          { return IDPreset }
func (Preset) Name() string        { return "Preset" }
func (Preset) Description() string { return "Keeps given positions, grids the rest" }

func (Preset) Apply(ctx context.Context, data *graph.Data, area graph.Rect) error {
	return Fill(ctx, Grid{}, data, area)
}

// Fill runs inner over the nodes that have no position yet, together with
// the edges between them, and copies the result back. Positioned nodes are
// left alone.
func Fill(ctx context.Context, inner plugin.Layout, data *graph.Data, area graph.Rect) error {
	index := make(map[string]int)
	sub := &graph.Data{}
	for i, n := range data.Nodes {
		if n.Position == nil {
			index[n.ID] = i
			sub.Nodes = append(sub.Nodes, n)
		}
	}
	if len(sub.Nodes) == 0 {
		return nil
	}
	for _, e := range data.Edges {
		_, src := index[e.Source]
		_, dst := index[e.Target]
		if src && dst {
			sub.Edges = append(sub.Edges, e)
		}
	}
	if err := inner.Apply(ctx, sub, area); err != nil {
		return err
	}
	for _, n := range sub.Nodes {
		data.Nodes[index[n.ID]].Position = n.Position
	}
	return nil
}

// Snap moves every positioned node to the nearest grid point of the given
// size, measured from the area origin. Points stay inside area.
func Snap(data *graph.Data, size float64, area graph.Rect) {
	if size <= 0 {
		return
	}
	snap := func(v, origin, extent float64) float64 {
		steps := math.Round((v - origin) / size)
		if limit := math.Floor(extent / size); steps > limit {
			steps = limit
		}
		if steps < 0 {
			steps = 0
		}
		return origin + steps*size
	}
	for i := range data.Nodes {
		p := data.Nodes[i].Position
		if p == nil {
			continue
		}
		data.Nodes[i].Position = &graph.Point{
			X: snap(p.X, area.X, area.Width),
			Y: snap(p.Y, area.Y, area.Height),
		}
	}
}
