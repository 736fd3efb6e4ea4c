package flowchart

import (
	"context"
	"math"
	"testing"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/layout"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/renderers/svg"
	"github.com/leeforge/globaltree/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// centerTool centers the viewport when applied.
type centerTool struct{ used int }

func (t *centerTool) ID() string          { return "center-view" }
func (t *centerTool) Name() string        { return "Center" }
func (t *centerTool) Icon() string        { return "" }
func (t *centerTool) Description() string { return "" }
func (t *centerTool) Activate()           {}
func (t *centerTool) Deactivate()         {}
func (t *centerTool) Enabled() bool       { return true }
func (t *centerTool) SetEnabled(bool)     {}

func (t *centerTool) Apply(_ context.Context, v plugin.Viewport) error {
	t.used++
	v.Center()
	return nil
}

func newRegistry(tools ...plugin.Tool) *runtime.Registry {
	r := runtime.NewRegistry(nil)
	r.RegisterRenderer(svg.NewFactory())
	for _, l := range layout.All() {
		r.RegisterLayout(l)
	}
	for _, t := range tools {
		r.RegisterTool(t)
	}
	return r
}

func process() *graph.Data {
	return &graph.Data{
		Nodes: []graph.Node{
			{ID: "start", Type: graph.NodeConcept, Label: "Start", Position: &graph.Point{X: 103, Y: 47}},
			{ID: "work", Type: graph.NodeEntity, Label: "Work"},
			{ID: "end", Type: graph.NodeConcept, Label: "End"},
		},
		Edges: []graph.Edge{
			{ID: "e1", Source: "start", Target: "work", Type: graph.EdgeDepends},
			{ID: "e2", Source: "work", Target: "end", Type: graph.EdgeDepends},
		},
	}
}

func onGrid(t *testing.T, p *graph.Point, size float64, area graph.Rect) {
	t.Helper()
	require.NotNil(t, p)
	assert.Zero(t, math.Mod(p.X-area.X, size), "x=%v", p.X)
	assert.Zero(t, math.Mod(p.Y-area.Y, size), "y=%v", p.Y)
	assert.True(t, p.X >= area.X && p.X <= area.X+area.Width)
	assert.True(t, p.Y >= area.Y && p.Y <= area.Y+area.Height)
}

// svg defaults: 800x600 with 40 padding.
var svgArea = graph.Rect{X: 40, Y: 40, Width: 720, Height: 520}

func TestFactory_CreateThroughRegistry(t *testing.T) {
	center := &centerTool{}
	reg := newRegistry(center)
	reg.RegisterScene(NewFactory(reg, nil, plugin.SceneConfig{"gridSize": 20}))

	scene, err := reg.CreateScene(Kind, plugin.NewMemoryContainer("c", 800, 600), nil)
	require.NoError(t, err)
	defer scene.Destroy()
	assert.Equal(t, Kind, scene.Kind())
	assert.Equal(t, "svg", scene.RendererID())

	cfg := scene.Config()
	assert.Equal(t, 20.0, cfg.Float("gridSize", 0), "factory base applies")
	assert.True(t, cfg.Bool("snapToGrid", false))

	tools := scene.Tools()
	require.Len(t, tools, 1, "unregistered toolbar tools are skipped")
	assert.Equal(t, "center-view", tools[0].ID())

	ctx := context.Background()
	require.NoError(t, scene.Render(ctx, process()))
	require.NoError(t, scene.UseTool(ctx, "center-view"))
	assert.Equal(t, 1, center.used)
}

func TestFactory_RejectsBadConfig(t *testing.T) {
	reg := newRegistry()
	f := NewFactory(reg, nil, nil)
	assert.ErrorIs(t, f.ValidateConfig(plugin.SceneConfig{"gridSize": 0}), apperrors.ErrInvalid)
	assert.ErrorIs(t, f.ValidateConfig(plugin.SceneConfig{"gridSize": "wide"}), apperrors.ErrInvalid)
	assert.ErrorIs(t, f.ValidateConfig(plugin.SceneConfig{"layout": ""}), apperrors.ErrInvalid)
	assert.NoError(t, f.ValidateConfig(plugin.SceneConfig{"gridSize": "15"}))

	_, err := reg.CreateScene(Kind, plugin.NewMemoryContainer("c", 1, 1), nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "factory not registered")
}

func TestScene_KeepsPositionsAndSnaps(t *testing.T) {
	ctx := context.Background()
	s := New(newRegistry(), nil)
	require.NoError(t, s.Initialize(ctx, plugin.NewMemoryContainer("c", 800, 600), nil))
	defer s.Destroy()

	in := process()
	require.NoError(t, s.Render(ctx, in))
	assert.Nil(t, in.Nodes[1].Position, "caller data is not touched")

	data := s.Data()
	start, _ := data.Node("start")
	assert.Equal(t, graph.Point{X: 100, Y: 50}, *start.Position)
	for _, n := range data.Nodes {
		onGrid(t, n.Position, DefaultGridSize, svgArea)
	}
}

func TestScene_SnapOffKeepsExactPositions(t *testing.T) {
	ctx := context.Background()
	s := New(newRegistry(), nil)
	require.NoError(t, s.Initialize(ctx, plugin.NewMemoryContainer("c", 800, 600),
		plugin.SceneConfig{"snapToGrid": false, "layout": "tree"}))
	defer s.Destroy()

	require.NoError(t, s.Render(ctx, process()))
	start, _ := s.Data().Node("start")
	assert.Equal(t, graph.Point{X: 103, Y: 47}, *start.Position)
}

func TestScene_UpdateKeepsPlacedNodes(t *testing.T) {
	ctx := context.Background()
	s := New(newRegistry(), nil)
	require.NoError(t, s.Initialize(ctx, plugin.NewMemoryContainer("c", 800, 600), nil))
	defer s.Destroy()
	require.NoError(t, s.Render(ctx, process()))

	before, _ := s.Data().Node("work")
	placed := *before.Position

	err := s.UpdateData(ctx, graph.Patch{
		UpsertNodes: []graph.Node{{ID: "check", Type: graph.NodeRelation, Label: "Check?"}},
		UpsertEdges: []graph.Edge{{ID: "e3", Source: "work", Target: "check", Type: graph.EdgeDepends}},
	})
	require.NoError(t, err)

	data := s.Data()
	after, _ := data.Node("work")
	assert.Equal(t, placed, *after.Position, "existing nodes stay where they were")
	check, ok := data.Node("check")
	require.True(t, ok)
	onGrid(t, check.Position, DefaultGridSize, svgArea)
}

func TestScene_UnknownLayout(t *testing.T) {
	ctx := context.Background()
	s := New(newRegistry(), nil)
	require.NoError(t, s.Initialize(ctx, plugin.NewMemoryContainer("c", 800, 600),
		plugin.SceneConfig{"layout": "spiral"}))
	defer s.Destroy()

	assert.ErrorIs(t, s.Render(ctx, process()), apperrors.ErrNotFound)

	bad := process()
	bad.Edges[0].Target = "ghost"
	s.SetConfig(plugin.SceneConfig{"layout": "grid"})
	assert.ErrorIs(t, s.Render(ctx, bad), apperrors.ErrInvalid)
}
