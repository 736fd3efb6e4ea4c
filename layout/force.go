package layout

import (
	"context"
	"math"

	"github.com/leeforge/globaltree/graph"
)

// DefaultForceIterations is used when NewForce gets a non-positive count.
const DefaultForceIterations = 150

// Force is a Fruchterman-Reingold spring embedding. It starts from a circle
// so the result is deterministic for a given graph.
type Force struct {
	iterations int
}

func NewForce(iterations int) Force {
	if iterations <= 0 {
		iterations = DefaultForceIterations
	}
	return Force{iterations: iterations}
}

func (Force) ID() string          { return IDForce }
func (Force) Name() string        { return "Force" }
func (Force) Description() string { return "Force-directed spring embedding" }

func (f Force) Apply(ctx context.Context, data *graph.Data, area graph.Rect) error {
	n := len(data.Nodes)
	if n == 0 {
		return nil
	}
	if err := (Circular{}).Apply(ctx, data, area); err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	iterations := f.iterations
	if iterations <= 0 {
		iterations = DefaultForceIterations
	}

	index := make(map[string]int, n)
	pos := make([]graph.Point, n)
	for i, node := range data.Nodes {
		index[node.ID] = i
		pos[i] = *node.Position
	}

	k := math.Sqrt(area.Width * area.Height / float64(n))
	temp := math.Max(area.Width, area.Height) / 10
	cool := temp / float64(iterations+1)
	disp := make([]graph.Point, n)

	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range disp {
			disp[i] = graph.Point{}
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx, dy, d := delta(pos[i], pos[j], i, j)
				force := k * k / d
				disp[i].X += dx / d * force
				disp[i].Y += dy / d * force
				disp[j].X -= dx / d * force
				disp[j].Y -= dy / d * force
			}
		}
		for _, e := range data.Edges {
			s, okS := index[e.Source]
			t, okT := index[e.Target]
			if !okS || !okT || s == t {
				continue
			}
			dx, dy, d := delta(pos[s], pos[t], s, t)
			force := d * d / k
			disp[s].X -= dx / d * force
			disp[s].Y -= dy / d * force
			disp[t].X += dx / d * force
			disp[t].Y += dy / d * force
		}
		for i := range pos {
			length := math.Hypot(disp[i].X, disp[i].Y)
			if length > 0 {
				step := math.Min(length, temp)
				pos[i].X += disp[i].X / length * step
				pos[i].Y += disp[i].Y / length * step
			}
			pos[i].X = clamp(pos[i].X, area.X, area.X+area.Width)
			pos[i].Y = clamp(pos[i].Y, area.Y, area.Y+area.Height)
		}
		temp -= cool
	}

	for i := range data.Nodes {
		place(&data.Nodes[i], pos[i].X, pos[i].Y)
	}
	return nil
}

// delta returns a-b and its length. Coincident points are nudged apart by
// index so the result stays deterministic.
func delta(a, b graph.Point, i, j int) (float64, float64, float64) {
	dx, dy := a.X-b.X, a.Y-b.Y
	d := math.Hypot(dx, dy)
	if d < 0.01 {
		dx, dy = 0.01*float64(j-i), 0.01
		d = math.Hypot(dx, dy)
	}
	return dx, dy, d
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
