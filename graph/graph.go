// Package graph holds the knowledge-graph data model shared by renderers,
// scenes and layouts.
package graph

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type NodeType string

const (
	NodeConcept  NodeType = "concept"
	NodeEntity   NodeType = "entity"
	NodeRelation NodeType = "relation"
	NodeDocument NodeType = "document"
)

type EdgeType string

const (
	EdgeContains EdgeType = "contains"
	EdgeRelates  EdgeType = "relates"
	EdgeDepends  EdgeType = "depends"
	EdgeSimilar  EdgeType = "similar"
)

type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Rect is the drawing area handed to layouts.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Center returns the middle point of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

type NodeStyle struct {
	Color       string  `json:"color,omitempty" yaml:"color,omitempty"`
	Size        float64 `json:"size,omitempty" yaml:"size,omitempty"`
	Shape       string  `json:"shape,omitempty" yaml:"shape,omitempty"`
	BorderColor string  `json:"borderColor,omitempty" yaml:"borderColor,omitempty"`
	BorderWidth float64 `json:"borderWidth,omitempty" yaml:"borderWidth,omitempty"`
}

type Node struct {
	ID         string         `json:"id" yaml:"id" validate:"required"`
	Type       NodeType       `json:"type" yaml:"type" validate:"required,oneof=concept entity relation document"`
	Label      string         `json:"label" yaml:"label"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	Position   *Point         `json:"position,omitempty" yaml:"position,omitempty"`
	Style      *NodeStyle     `json:"style,omitempty" yaml:"style,omitempty"`
}

type Edge struct {
	ID         string         `json:"id" yaml:"id" validate:"required"`
	Source     string         `json:"source" yaml:"source" validate:"required"`
	Target     string         `json:"target" yaml:"target" validate:"required"`
	Type       EdgeType       `json:"type" yaml:"type" validate:"required,oneof=contains relates depends similar"`
	Label      string         `json:"label,omitempty" yaml:"label,omitempty"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

type Metadata struct {
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero" yaml:"updatedAt,omitempty"`
	Version     string    `json:"version,omitempty" yaml:"version,omitempty"`
}

type Data struct {
	Nodes    []Node    `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges    []Edge    `json:"edges" yaml:"edges" validate:"dive"`
	Metadata *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

var validate = validator.New()

// Validate checks field constraints, unique node ids and that every edge
// connects two known nodes.
func (d *Data) Validate() error {
	if d == nil {
		return fmt.Errorf("graph data is nil")
	}
	if err := validate.Struct(d); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for _, e := range d.Edges {
		if _, ok := seen[e.Source]; !ok {
			return fmt.Errorf("edge %q: unknown source %q", e.ID, e.Source)
		}
		if _, ok := seen[e.Target]; !ok {
			return fmt.Errorf("edge %q: unknown target %q", e.ID, e.Target)
		}
	}
	return nil
}

// Node returns the node with the given id.
func (d *Data) Node(id string) (*Node, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy. Property maps are copied one level deep.
func (d *Data) Clone() *Data {
	if d == nil {
		return nil
	}
	out := &Data{
		Nodes: make([]Node, len(d.Nodes)),
		Edges: make([]Edge, len(d.Edges)),
	}
	for i, n := range d.Nodes {
		n.Properties = cloneProps(n.Properties)
		if n.Position != nil {
			p := *n.Position
			n.Position = &p
		}
		if n.Style != nil {
			s := *n.Style
			n.Style = &s
		}
		out.Nodes[i] = n
	}
	for i, e := range d.Edges {
		e.Properties = cloneProps(e.Properties)
		out.Edges[i] = e
	}
	if d.Metadata != nil {
		m := *d.Metadata
		out.Metadata = &m
	}
	return out
}

// Bounds returns the smallest rectangle containing every positioned node.
func (d *Data) Bounds() (Rect, bool) {
	var r Rect
	found := false
	var minX, minY, maxX, maxY float64
	for _, n := range d.Nodes {
		if n.Position == nil {
			continue
		}
		p := *n.Position
		if !found {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			found = true
			continue
		}
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	if found {
		r = Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	}
	return r, found
}

func cloneProps(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
