package cli

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-adminform/internal/config"
	"github.com/goliatone/go-adminform/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dialogs and the SQL preview endpoint over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st := stateFrom(ctx)

			opts, err := orchestratorOptions(st)
			if err != nil {
				return err
			}
			db, err := connect(ctx, st)
			if err != nil {
				return err
			}
			defer db.Close()

			srv, err := server.New(ctx, server.Config{
				Addr:       st.cfg.Addr,
				SchemasDir: st.cfg.SchemasDir,
				OpenAPI:    st.cfg.OpenAPI,
				Watch:      st.cfg.Watch,
				Logger:     st.logger,
				Options:    opts,
				ServerInfo: db.serverInfo(),
				Prepare:    db.prepare(),
			})
			if err != nil {
				return err
			}
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default "+config.DefaultAddr+")")
	cmd.Flags().Bool("watch", false, "reload the catalog when schema documents change")
	return cmd
}
