package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/json"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/storage"
)

type renderOptions struct {
	renderer string
	format   string
	in       string
	out      string
	width    int
	height   int
}

func newRenderCommand(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a graph file with a registered renderer",
		Example: `  globaltree render --in graph.json --out graph.svg
  globaltree render --in graph.yaml --format png --width 1024 --out graph.png
  cat graph.json | globaltree render --format yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.renderer, "renderer", "", "renderer id, defaults to renderer.default")
	flags.StringVar(&opts.format, "format", string(plugin.FormatSVG), "svg, png, thumbnail, json or yaml")
	flags.StringVar(&opts.in, "in", "-", "graph file (.json, .yaml or .yml); - reads JSON from stdin")
	flags.StringVar(&opts.out, "out", "-", "output file; - writes to stdout")
	flags.IntVar(&opts.width, "width", 800, "drawing width in pixels")
	flags.IntVar(&opts.height, "height", 600, "drawing height in pixels")
	return cmd
}

func runRender(cmd *cobra.Command, root *rootOptions, opts *renderOptions) error {
	if opts.width <= 0 || opts.height <= 0 {
		return apperrors.NewInvalid("size", []int{opts.width, opts.height}, "width and height must be positive")
	}
	data, err := readGraph(cmd.InOrStdin(), opts.in)
	if err != nil {
		return err
	}

	cfg, err := root.load()
	if err != nil {
		return err
	}
	if opts.renderer == "" {
		opts.renderer = cfg.Renderer.Default
	}

	ctx := cmd.Context()
	a, err := root.boot(ctx, cfg, root.logger(cfg), storage.NewMemory())
	if err != nil {
		return err
	}
	defer a.Destroy(context.Background())

	renderer, err := a.Registry().CreateRenderer(opts.renderer, nil)
	if err != nil {
		return err
	}
	defer renderer.Destroy()

	container := plugin.NewMemoryContainer("cli", opts.width, opts.height)
	if err := renderer.Render(ctx, container, data, nil); err != nil {
		return err
	}
	out, err := renderer.Export(plugin.ExportFormat(opts.format))
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), opts.out, out)
}

func readGraph(stdin io.Reader, path string) (*graph.Data, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInvalid, "read graph "+path)
	}

	var data graph.Data
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &data)
	default:
		err = json.Unmarshal(raw, &data)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInvalid, "decode graph "+path)
	}
	if err := data.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInvalid, "graph "+path)
	}
	return &data, nil
}

func writeOutput(stdout io.Writer, path string, out []byte) error {
	if path == "-" {
		_, err := stdout.Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeInternal, "write "+path)
	}
	return nil
}
