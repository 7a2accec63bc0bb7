package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-adminform/pkg/orchestrator"
)

func newRenderCmd() *cobra.Command {
	var (
		flags  dialogFlags
		layout string
		output string
	)
	cmd := &cobra.Command{
		Use:   "render <type>",
		Short: "Render the property dialog of a node type to HTML",
		Example: `  adminform render user_mapping --mode create \
    --ancestor server_group:1 --ancestor database:13 \
    --ancestor foreign_data_wrapper:7 --ancestor foreign_server:9`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st := stateFrom(ctx)

			switch orchestrator.Layout(layout) {
			case orchestrator.LayoutTabs, orchestrator.LayoutFieldset:
			default:
				return fmt.Errorf("unknown layout %q", layout)
			}

			db, err := connect(ctx, st)
			if err != nil {
				return err
			}
			defer db.Close()
			c, err := loadCatalog(ctx, st, db)
			if err != nil {
				return err
			}
			opts, err := orchestratorOptions(st)
			if err != nil {
				return err
			}

			req, err := flags.request(ctx, c, args[0], db.serverInfo())
			if err != nil {
				return err
			}
			req.Layout = orchestrator.Layout(layout)
			req.ThemeName = st.cfg.Theme.Name
			req.ThemeVariant = st.cfg.Theme.Variant

			orch := orchestrator.New(append(opts, orchestrator.WithCatalog(c))...)
			out, err := orch.Generate(ctx, req)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, out)
		},
	}
	flags.register(cmd, "properties")
	cmd.Flags().StringVar(&layout, "layout", string(orchestrator.LayoutTabs), "dialog layout (tabs|fieldset)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the markup to this file instead of stdout")
	return cmd
}
