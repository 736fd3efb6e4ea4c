package layout

import (
	"context"

	"github.com/leeforge/globaltree/graph"
)

// Tree lays nodes out top-down by depth. Hierarchy comes from "contains"
// edges; graphs without any use every edge. Nodes unreachable from a root
// (cycles) start their own subtree.
type Tree struct{}

func (Tree) ID() string          { return IDTree }
func (Tree) Name() string        { return "Tree" }
func (Tree) Description() string { return "Hierarchy from containment edges, top-down" }

func (Tree) Apply(_ context.Context, data *graph.Data, area graph.Rect) error {
	if len(data.Nodes) == 0 {
		return nil
	}
	levels := treeLevels(data)

	levelH := area.Height / float64(len(levels))
	for depth, ids := range levels {
		slotW := area.Width / float64(len(ids))
		for i, id := range ids {
			n, _ := data.Node(id)
			place(n, area.X+(float64(i)+0.5)*slotW, area.Y+(float64(depth)+0.5)*levelH)
		}
	}
	return nil
}

// treeLevels groups node ids by depth in breadth-first order.
func treeLevels(data *graph.Data) [][]string {
	hierarchical := false
	for _, e := range data.Edges {
		if e.Type == graph.EdgeContains {
			hierarchical = true
			break
		}
	}

	children := make(map[string][]string)
	hasParent := make(map[string]bool)
	for _, e := range data.Edges {
		if hierarchical && e.Type != graph.EdgeContains {
			continue
		}
		if e.Source == e.Target {
			continue
		}
		children[e.Source] = append(children[e.Source], e.Target)
		hasParent[e.Target] = true
	}

	depth := make(map[string]int, len(data.Nodes))
	var levels [][]string
	visit := func(root string) {
		queue := []string{root}
		depth[root] = 0
		if len(levels) == 0 {
			levels = append(levels, nil)
		}
		levels[0] = append(levels[0], root)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, child := range children[cur] {
				if _, seen := depth[child]; seen {
					continue
				}
				d := depth[cur] + 1
				depth[child] = d
				if len(levels) <= d {
					levels = append(levels, nil)
				}
				levels[d] = append(levels[d], child)
				queue = append(queue, child)
			}
		}
	}

	for _, n := range data.Nodes {
		if !hasParent[n.ID] {
			visit(n.ID)
		}
	}
	for _, n := range data.Nodes {
		if _, seen := depth[n.ID]; !seen {
			visit(n.ID)
		}
	}
	return levels
}
