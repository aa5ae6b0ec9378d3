package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins and item ownership",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.newEnv(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			plugins := e.rt.AllPlugins()
			if len(plugins) == 0 {
				info(w, "no plugins installed")
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLUGIN\tVERSION\tINSTALL ID\tITEMS")
			for _, p := range plugins {
				rec, _ := e.rt.PluginRecord(p.Name)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.Name, p.Version, rec.InstallID, len(rec.Applied))
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "ITEM\tOWNER")
			for _, entry := range e.rt.Ownership() {
				fmt.Fprintf(tw, "%s\t%s\n", entry.Key, entry.Owner)
			}
			return tw.Flush()
		},
	}
}
