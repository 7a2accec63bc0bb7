package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newNodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List the node types of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := stateFrom(cmd.Context())
			c, err := loadCatalog(cmd.Context(), st, nil)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tLABEL\tMODEL\tSQL")
			for _, typ := range c.NodeTypes() {
				spec, _ := c.Node(typ)
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", typ, spec.Label, spec.Model, spec.HasSQL)
			}
			return w.Flush()
		},
	}
}
