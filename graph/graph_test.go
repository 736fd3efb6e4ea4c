package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Data {
	return &Data{
		Nodes: []Node{
			{ID: "root", Type: NodeConcept, Label: "Root"},
			{ID: "a", Type: NodeEntity, Label: "A", Properties: map[string]any{"w": 1}},
			{ID: "b", Type: NodeDocument, Label: "B"},
		},
		Edges: []Edge{
			{ID: "e1", Source: "root", Target: "a", Type: EdgeContains},
			{ID: "e2", Source: "root", Target: "b", Type: EdgeContains},
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, sample().Validate())

	d := sample()
	d.Edges = append(d.Edges, Edge{ID: "e3", Source: "a", Target: "ghost", Type: EdgeRelates})
	assert.ErrorContains(t, d.Validate(), "ghost")

	d = sample()
	d.Nodes = append(d.Nodes, Node{ID: "a", Type: NodeEntity})
	assert.ErrorContains(t, d.Validate(), "duplicate")

	d = sample()
	d.Nodes[0].Type = "planet"
	assert.Error(t, d.Validate())

	var nilData *Data
	assert.Error(t, nilData.Validate())
}

func TestClone_IsDeep(t *testing.T) {
	d := sample()
	d.Nodes[1].Position = &Point{X: 1, Y: 2}

	c := d.Clone()
	c.Nodes[1].Properties["w"] = 99
	c.Nodes[1].Position.X = 50
	c.Nodes[0].Label = "changed"

	assert.Equal(t, 1, d.Nodes[1].Properties["w"])
	assert.Equal(t, 1.0, d.Nodes[1].Position.X)
	assert.Equal(t, "Root", d.Nodes[0].Label)
}

func TestBounds(t *testing.T) {
	d := sample()
	_, ok := d.Bounds()
	assert.False(t, ok)

	d.Nodes[0].Position = &Point{X: -10, Y: 5}
	d.Nodes[2].Position = &Point{X: 30, Y: 45}
	r, ok := d.Bounds()
	require.True(t, ok)
	assert.Equal(t, Rect{X: -10, Y: 5, Width: 40, Height: 40}, r)
}

func TestPatchApply(t *testing.T) {
	d := sample()
	p := Patch{
		UpsertNodes: []Node{{ID: "a", Type: NodeEntity, Label: "A2"}, {ID: "c", Type: NodeConcept}},
		UpsertEdges: []Edge{{ID: "e4", Source: "a", Target: "c", Type: EdgeRelates}},
		RemoveNodes: []string{"b"},
	}
	require.False(t, p.Empty())

	out := p.Apply(d)
	require.NoError(t, out.Validate())

	n, ok := out.Node("a")
	require.True(t, ok)
	assert.Equal(t, "A2", n.Label)
	_, ok = out.Node("b")
	assert.False(t, ok)
	assert.Len(t, out.Edges, 2, "edge to removed node dropped, new edge added")

	// original untouched
	assert.Len(t, d.Nodes, 3)
	assert.Equal(t, "A", d.Nodes[1].Label)
}
