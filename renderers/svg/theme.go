package svg

import (
	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/plugin"
)

// Palette keys read from a Theme.
const (
	ColorBackground = "background"
	ColorNode       = "node"
	ColorEdge       = "edge"
	ColorText       = "text"
	ColorBorder     = "border"
)

func DefaultTheme() plugin.Theme {
	return plugin.Theme{
		ID:   "default",
		Name: "Default",
		Colors: map[string]string{
			ColorBackground:            "#ffffff",
			ColorNode:                  "#4f46e5",
			ColorEdge:                  "#94a3b8",
			ColorText:                  "#1f2937",
			ColorBorder:                "#312e81",
			string(graph.NodeConcept):  "#4f46e5",
			string(graph.NodeEntity):   "#059669",
			string(graph.NodeRelation): "#d97706",
			string(graph.NodeDocument): "#dc2626",
		},
		Fonts:   map[string]string{"family": "sans-serif"},
		Spacing: map[string]int{"fontSize": 12, "nodeRadius": 18},
	}
}

func DarkTheme() plugin.Theme {
	return plugin.Theme{
		ID:   "dark",
		Name: "Dark",
		Colors: map[string]string{
			ColorBackground:            "#111827",
			ColorNode:                  "#818cf8",
			ColorEdge:                  "#4b5563",
			ColorText:                  "#f9fafb",
			ColorBorder:                "#c7d2fe",
			string(graph.NodeConcept):  "#818cf8",
			string(graph.NodeEntity):   "#34d399",
			string(graph.NodeRelation): "#fbbf24",
			string(graph.NodeDocument): "#f87171",
		},
		Fonts:   map[string]string{"family": "sans-serif"},
		Spacing: map[string]int{"fontSize": 12, "nodeRadius": 18},
	}
}

// palette is the resolved set of colors and sizes used for one draw.
type palette struct {
	theme      plugin.Theme
	background string
	fontFamily string
	fontSize   int
	radius     float64
}

func newPalette(theme plugin.Theme, cfg Config) palette {
	p := palette{
		theme:      theme,
		background: theme.Color(ColorBackground, "#ffffff"),
		fontFamily: "sans-serif",
		fontSize:   12,
		radius:     18,
	}
	if cfg.Background != "" {
		p.background = cfg.Background
	}
	if f := theme.Fonts["family"]; f != "" {
		p.fontFamily = f
	}
	if s := theme.Spacing["fontSize"]; s > 0 {
		p.fontSize = s
	}
	if r := theme.Spacing["nodeRadius"]; r > 0 {
		p.radius = float64(r)
	}
	return p
}

func (p palette) nodeFill(n graph.Node) string {
	if n.Style != nil && n.Style.Color != "" {
		return n.Style.Color
	}
	return p.theme.Color(string(n.Type), p.theme.Color(ColorNode, "#4f46e5"))
}

func (p palette) nodeRadius(n graph.Node) float64 {
	if n.Style != nil && n.Style.Size > 0 {
		return n.Style.Size / 2
	}
	return p.radius
}

func (p palette) nodeBorder(n graph.Node) (string, float64) {
	if n.Style != nil && n.Style.BorderColor != "" {
		w := n.Style.BorderWidth
		if w <= 0 {
			w = 1
		}
		return n.Style.BorderColor, w
	}
	return p.theme.Color(ColorBorder, "#312e81"), 1
}
