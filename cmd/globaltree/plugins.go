package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leeforge/globaltree/app"
	"github.com/leeforge/globaltree/storage"
	"github.com/leeforge/globaltree/utils"
)

func newPluginsCommand(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List loaded plugins and the capabilities they register",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			a, err := root.boot(cmd.Context(), cfg, root.logger(cfg), storage.NewMemory())
			if err != nil {
				return err
			}
			defer a.Destroy(cmd.Context())

			status := a.Status()
			if asJSON {
				return utils.PrintJSON(cmd.OutOrStdout(), status)
			}
			return printStatus(cmd.OutOrStdout(), status)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full status as JSON")
	return cmd
}

func printStatus(w io.Writer, status app.Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tTYPE\tSTATE\tDEPENDS ON")
	for _, p := range status.Plugins {
		deps := strings.Join(p.Info.Dependencies, ",")
		if deps == "" {
			deps = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Info.ID, p.Info.Version, p.Info.Type, p.State, deps)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	kinds := make([]string, 0, len(status.Capabilities))
	for kind := range status.Capabilities {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CAPABILITY\tIDS")
	for _, kind := range kinds {
		fmt.Fprintf(tw, "%s\t%s\n", kind, strings.Join(status.Capabilities[kind], ", "))
	}
	return tw.Flush()
}
