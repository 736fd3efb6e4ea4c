// Package loader turns plugin module ids into plugin instances.
//
// A module is a named set of exported constructors. Modules come from a
// Source: an in-process Catalog, a directory of Go shared objects, or a
// Chain of both. Resolve picks the constructor a module offers for an id.
package loader

import (
	"context"
	"path"
	"sort"
	"strings"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/utils"
	"go.uber.org/zap"
)

// Well-known export names, tried in this order before name derivation.
const (
	ExportPlugin  = "PLUGIN"
	ExportDefault = "default"
)

// Constructor builds a fresh plugin instance.
type Constructor func() (plugin.Plugin, error)

// Module is the set of constructors one module exports.
type Module struct {
	ID      string
	Exports map[string]Constructor
}

// Source finds modules by id. Unknown ids yield a not_found error.
type Source interface {
	Module(ctx context.Context, id string) (*Module, error)
}

// DerivedName is the export name conventionally used for id: its last path
// segment in UpperCamelCase ("scenes/mind-map" -> "MindMap").
func DerivedName(id string) string {
	return utils.UpperCamelCase(path.Base(strings.TrimRight(id, "/")))
}

// Resolve picks the constructor for id from m. It tries PLUGIN, then
// default, then DerivedName(id), then the first export (by name) that
// contains "Plugin". It returns the export name it used.
func Resolve(m *Module, id string) (Constructor, string, error) {
	if m == nil || len(m.Exports) == 0 {
		return nil, "", apperrors.NewPluginClassNotFound(id)
	}
	for _, name := range []string{ExportPlugin, ExportDefault, DerivedName(id)} {
		if c, ok := m.Exports[name]; ok && c != nil {
			return c, name, nil
		}
	}

	names := make([]string, 0, len(m.Exports))
	for name := range m.Exports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.Contains(name, "Plugin") && m.Exports[name] != nil {
			return m.Exports[name], name, nil
		}
	}
	return nil, "", apperrors.NewPluginClassNotFound(id)
}

// Loader combines a Source with Resolve.
type Loader struct {
	source Source
	logger logging.Logger
}

// New creates a loader over sources, consulted in order.
func New(logger logging.Logger, sources ...Source) *Loader {
	var src Source = Chain(sources)
	if len(sources) == 1 {
		src = sources[0]
	}
	return &Loader{source: src, logger: logging.OrNop(logger)}
}

// Load fetches module id, resolves its constructor and builds the plugin.
func (l *Loader) Load(ctx context.Context, id string) (plugin.Plugin, error) {
	m, err := l.source.Module(ctx, id)
	if err != nil {
		return nil, err
	}
	ctor, export, err := Resolve(m, id)
	if err != nil {
		return nil, err
	}

	var p plugin.Plugin
	err = apperrors.Recover(func() error {
		var cerr error
		p, cerr = ctor()
		return cerr
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "construct plugin "+id).
			WithDetail("module", id).
			WithDetail("export", export)
	}
	if p == nil {
		return nil, apperrors.NewPluginClassNotFound(id).WithDetail("export", export)
	}

	l.logger.Debug("plugin module resolved",
		zap.String("module", id), zap.String("export", export), zap.String("plugin", p.Info().ID))
	return p, nil
}
