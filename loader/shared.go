package loader

import (
	"context"
	"path"
	"path/filepath"
	goplugin "plugin"
	"strings"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/utils"
)

// SharedObjectSource loads modules built with `go build -buildmode=plugin`.
// Module "scenes/mindmap" maps to <Dir>/mindmap.so, which must export a
// PLUGIN symbol: a Constructor, a func() (plugin.Plugin, error) or a
// plugin.Plugin variable.
type SharedObjectSource struct {
	Dir string
}

func (s SharedObjectSource) Module(_ context.Context, id string) (*Module, error) {
	file := filepath.Join(s.Dir, path.Base(strings.TrimRight(id, "/"))+".so")
	_, exists, err := utils.Exists(file)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "stat plugin module "+file)
	}
	if !exists {
		return nil, apperrors.NewNotFound("plugin module", id)
	}

	so, err := goplugin.Open(file)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "open plugin module "+file)
	}
	sym, err := so.Lookup(ExportPlugin)
	if err != nil {
		return nil, apperrors.NewPluginClassNotFound(id).WithInnerError(err)
	}
	ctor := asConstructor(sym)
	if ctor == nil {
		return nil, apperrors.NewPluginClassNotFound(id).
			WithDetail("reason", "PLUGIN has an unsupported type")
	}
	return &Module{ID: id, Exports: map[string]Constructor{ExportPlugin: ctor}}, nil
}

// asConstructor adapts the exported symbol. Nil pointers and nil values
// yield nil, which callers report as plugin_class_not_found.
func asConstructor(sym goplugin.Symbol) Constructor {
	switch v := sym.(type) {
	case Constructor:
		return v
	case *Constructor:
		if v == nil {
			return nil
		}
		return *v
	case func() (plugin.Plugin, error):
		return v
	case *func() (plugin.Plugin, error):
		if v == nil || *v == nil {
			return nil
		}
		return *v
	case *plugin.Plugin:
		if v == nil || *v == nil {
			return nil
		}
		p := *v
		return func() (plugin.Plugin, error) { return p, nil }
	case plugin.Plugin:
		return func() (plugin.Plugin, error) { return v, nil }
	}
	return nil
}

var _ Source = SharedObjectSource{}
