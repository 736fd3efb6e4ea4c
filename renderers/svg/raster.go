package svg

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/leeforge/globaltree/graph"
	"github.com/nfnt/resize"
)

// rasterize paints nodes as discs and edges as lines. Labels are left out.
func rasterize(data *graph.Data, cfg Config, pal palette, v view) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: parseHex(pal.background, color.White)}, image.Point{}, draw.Src)

	edge := parseHex(pal.theme.Color(ColorEdge, "#94a3b8"), color.Gray{Y: 160})
	for _, e := range data.Edges {
		src, okS := data.Node(e.Source)
		dst, okT := data.Node(e.Target)
		if !okS || !okT || src.Position == nil || dst.Position == nil {
			continue
		}
		x0, y0 := v.apply(*src.Position)
		x1, y1 := v.apply(*dst.Position)
		line(img, x0, y0, x1, y1, edge)
	}

	for _, n := range data.Nodes {
		if n.Position == nil {
			continue
		}
		x, y := v.apply(*n.Position)
		disc(img, x, y, pal.nodeRadius(n)*v.Zoom, parseHex(pal.nodeFill(n), color.Black))
	}
	return img
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// thumbnail scales img to fit a width x width box with Lanczos resampling.
func thumbnail(img image.Image, width int) ([]byte, error) {
	small := resize.Thumbnail(uint(width), uint(width), img, resize.Lanczos3)
	return encodePNG(small)
}

func line(img *image.RGBA, x0, y0, x1, y1 float64, c color.Color) {
	steps := int(math.Max(math.Abs(x1-x0), math.Abs(y1-y0)))
	if steps == 0 {
		img.Set(int(x0), int(y0), c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		img.Set(int(math.Round(x0+(x1-x0)*t)), int(math.Round(y0+(y1-y0)*t)), c)
	}
}

func disc(img *image.RGBA, cx, cy, r float64, c color.Color) {
	b := img.Bounds()
	minX, maxX := max(int(cx-r), b.Min.X), min(int(cx+r)+1, b.Max.X)
	minY, maxY := max(int(cy-r), b.Min.Y), min(int(cy+r)+1, b.Max.Y)
	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if dx*dx+dy*dy <= r*r {
				img.Set(x, y, c)
			}
		}
	}
}

// parseHex reads #rgb or #rrggbb, returning def for anything else.
func parseHex(s string, def color.Color) color.Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return def
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return def
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
