// Package builtin exposes the plugins shipped with the module as a loader
// catalog.
package builtin

import (
	"github.com/leeforge/globaltree/loader"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/plugins/flowchartplugin"
	"github.com/leeforge/globaltree/plugins/mindmapplugin"
	"github.com/leeforge/globaltree/plugins/svgplugin"
	"github.com/leeforge/globaltree/plugins/toolboxplugin"
)

// Module ids, usable in AppConfig.Plugins.
const (
	ModuleSVG       = "globaltree/svg"
	ModuleToolbox   = "globaltree/toolbox"
	ModuleMindmap   = "globaltree/mindmap"
	ModuleFlowchart = "globaltree/flowchart"
)

// Modules lists the built-in module ids in a working load order.
func Modules() []string {
	return []string{ModuleSVG, ModuleToolbox, ModuleMindmap, ModuleFlowchart}
}

// Catalog returns a fresh catalog holding every built-in module. Each
// module exports its plugin under loader.ExportPlugin.
func Catalog() *loader.Catalog {
	c := loader.NewCatalog()
	c.Register(ModuleSVG, export(func() plugin.Plugin { return svgplugin.New() }))
	c.Register(ModuleToolbox, export(func() plugin.Plugin { return toolboxplugin.New() }))
	c.Register(ModuleMindmap, export(func() plugin.Plugin { return mindmapplugin.New() }))
	c.Register(ModuleFlowchart, export(func() plugin.Plugin { return flowchartplugin.New() }))
	return c
}

func export(newPlugin func() plugin.Plugin) loader.Module {
	return loader.Module{Exports: map[string]loader.Constructor{
		loader.ExportPlugin: func() (plugin.Plugin, error) { return newPlugin(), nil },
	}}
}
