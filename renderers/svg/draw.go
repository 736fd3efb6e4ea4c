package svg

import (
	"fmt"
	"html"
	"strings"

	"github.com/leeforge/globaltree/graph"
)

// view is the viewport transform: screen = world*zoom + pan.
type view struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

func (v view) apply(p graph.Point) (float64, float64) {
	return p.X*v.Zoom + v.PanX, p.Y*v.Zoom + v.PanY
}

// drawSVG renders laid-out data as a standalone SVG document.
func drawSVG(data *graph.Data, cfg Config, pal palette, v view) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
	b.WriteByte('\n')
	fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`, attr(pal.background))
	b.WriteByte('\n')
	fmt.Fprintf(&b, `<g class="viewport" transform="translate(%s %s) scale(%s)">`, num(v.PanX), num(v.PanY), num(v.Zoom))
	b.WriteByte('\n')

	edgeColor := pal.theme.Color(ColorEdge, "#94a3b8")
	for _, e := range data.Edges {
		src, okS := data.Node(e.Source)
		dst, okT := data.Node(e.Target)
		if !okS || !okT || src.Position == nil || dst.Position == nil {
			continue
		}
		fmt.Fprintf(&b, `<line class="edge edge-%s" data-id="%s" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1.5"/>`,
			attr(string(e.Type)), attr(e.ID),
			num(src.Position.X), num(src.Position.Y), num(dst.Position.X), num(dst.Position.Y),
			attr(edgeColor))
		b.WriteByte('\n')
	}

	textColor := pal.theme.Color(ColorText, "#1f2937")
	for _, n := range data.Nodes {
		if n.Position == nil {
			continue
		}
		border, width := pal.nodeBorder(n)
		fmt.Fprintf(&b, `<g class="node node-%s" data-id="%s">`, attr(string(n.Type)), attr(n.ID))
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" fill="%s" stroke="%s" stroke-width="%s"/>`,
			num(n.Position.X), num(n.Position.Y), num(pal.nodeRadius(n)),
			attr(pal.nodeFill(n)), attr(border), num(width))
		if n.Label != "" {
			fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-family="%s" font-size="%d" fill="%s">%s</text>`,
				num(n.Position.X), num(n.Position.Y+pal.nodeRadius(n)+float64(pal.fontSize)+2),
				attr(pal.fontFamily), pal.fontSize, attr(textColor), html.EscapeString(n.Label))
		}
		b.WriteString("</g>\n")
	}

	b.WriteString("</g>\n</svg>\n")
	return []byte(b.String())
}

func attr(s string) string {
	return html.EscapeString(s)
}

func num(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
