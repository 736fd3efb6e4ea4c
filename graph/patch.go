package graph

// Patch describes an incremental change applied by Scene.UpdateData.
// Upserts replace existing elements with the same id or append new ones;
// removing a node also drops its incident edges.
type Patch struct {
	UpsertNodes []Node   `json:"upsertNodes,omitempty"`
	UpsertEdges []Edge   `json:"upsertEdges,omitempty"`
	RemoveNodes []string `json:"removeNodes,omitempty"`
	RemoveEdges []string `json:"removeEdges,omitempty"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return len(p.UpsertNodes) == 0 && len(p.UpsertEdges) == 0 &&
		len(p.RemoveNodes) == 0 && len(p.RemoveEdges) == 0
}

// Apply returns a new Data with p applied to d. d is left untouched.
func (p Patch) Apply(d *Data) *Data {
	out := d.Clone()
	if out == nil {
		out = &Data{}
	}

	removedNodes := toSet(p.RemoveNodes)
	removedEdges := toSet(p.RemoveEdges)

	nodes := out.Nodes[:0]
	for _, n := range out.Nodes {
		if _, gone := removedNodes[n.ID]; !gone {
			nodes = append(nodes, n)
		}
	}
	out.Nodes = nodes
	for _, n := range p.UpsertNodes {
		if existing, ok := out.Node(n.ID); ok {
			*existing = n
			continue
		}
		out.Nodes = append(out.Nodes, n)
	}

	edges := out.Edges[:0]
	for _, e := range out.Edges {
		if _, gone := removedEdges[e.ID]; gone {
			continue
		}
		if _, gone := removedNodes[e.Source]; gone {
			continue
		}
		if _, gone := removedNodes[e.Target]; gone {
			continue
		}
		edges = append(edges, e)
	}
	out.Edges = edges
	for _, e := range p.UpsertEdges {
		replaced := false
		for i := range out.Edges {
			if out.Edges[i].ID == e.ID {
				out.Edges[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
