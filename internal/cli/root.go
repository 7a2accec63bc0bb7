// Package cli provides the adminform command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-adminform/internal/capability"
	"github.com/goliatone/go-adminform/internal/catalog"
	"github.com/goliatone/go-adminform/internal/config"
	"github.com/goliatone/go-adminform/internal/server"
	"github.com/goliatone/go-adminform/pkg/msql"
	"github.com/goliatone/go-adminform/pkg/node"
	"github.com/goliatone/go-adminform/pkg/orchestrator"
	"github.com/goliatone/go-adminform/pkg/schema"
	"github.com/goliatone/go-adminform/pkg/themes"
)

// Version is set at build time.
var Version = "0.1.0"

type stateKey struct{}

// state is what PersistentPreRunE hands to every subcommand.
type state struct {
	cfg    *config.Config
	logger *slog.Logger
}

func stateFrom(ctx context.Context) *state {
	if s, ok := ctx.Value(stateKey{}).(*state); ok {
		return s
	}
	cfg := &config.Config{
		Addr: config.DefaultAddr,
		Log:  config.LogConfig{Level: config.DefaultLogLevel, Format: config.DefaultLogFormat},
		MSQL: config.MSQLConfig{BaseURL: config.DefaultMSQLBaseURL, Timeout: config.DefaultMSQLTimeout},
	}
	return &state{cfg: cfg, logger: slog.New(slog.DiscardHandler)}
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "adminform",
		Short: "Render database object property dialogs from schema documents",
		Long: `adminform turns declarative node schemas into property dialogs.

Schemas are read from the bundled catalog, a schemas directory and the
component schemas of OpenAPI documents. Dialogs can be rendered to HTML,
served over HTTP, or filled in interactively on the terminal.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := cfg.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.File != "" {
				logger.Debug("cli: using config file", "path", cfg.File)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, stateKey{}, &state{cfg: cfg, logger: logger}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./adminform.yaml)")
	flags.String("schemas-dir", "", "directory of node schema documents merged over the bundled catalog")
	flags.StringSlice("openapi", nil, "OpenAPI documents whose component schemas become model types")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("log-format", "", "log format (text|json)")
	flags.String("msql-url", "", "base URL of the SQL preview endpoint")
	flags.Duration("msql-timeout", 0, "SQL preview request timeout")
	flags.String("dsn", "", "PostgreSQL connection string probed for server capabilities")
	flags.String("theme", "", "theme name")
	flags.String("theme-variant", "", "theme variant")
	flags.String("theme-dir", "", "directory of theme manifests and partials")

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newFillCmd())
	rootCmd.AddCommand(newNodesCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// loadCatalog reads the catalog and binds the hooks of b, which may be nil.
func loadCatalog(ctx context.Context, st *state, b *backend) (*schema.Catalog, error) {
	c, err := catalog.Load(st.cfg.SchemasDir)
	if err != nil {
		return nil, err
	}
	if err := catalog.Import(ctx, c, st.logger, st.cfg.OpenAPI...); err != nil {
		return nil, err
	}
	if prepare := b.prepare(); prepare != nil {
		if err := prepare(ctx, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// orchestratorOptions builds the options shared by every command. The
// catalog is added by the caller.
func orchestratorOptions(st *state) ([]orchestrator.Option, error) {
	opts := []orchestrator.Option{
		orchestrator.WithLogger(st.logger),
		orchestrator.WithFetcher(msql.NewClient(
			msql.WithBaseURL(st.cfg.MSQL.BaseURL),
			msql.WithTimeout(st.cfg.MSQL.Timeout),
			msql.WithLogger(st.logger),
		)),
	}
	if dir := st.cfg.Theme.Dir; dir != "" {
		assets := os.DirFS(dir)
		selector, err := themes.LoadSelector(assets, st.cfg.Theme.Name, st.cfg.Theme.Variant)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			orchestrator.WithThemeSelector(selector),
			orchestrator.WithThemeAssets(assets),
		)
	}
	return opts, nil
}

// backend is the optional database connection. Without a DSN every server
// is reported as a current PostgreSQL and role fields keep their fixed
// choices.
type backend struct {
	prober *capability.Prober
	logger *slog.Logger
}

func connect(ctx context.Context, st *state) (*backend, error) {
	b := &backend{logger: st.logger}
	if st.cfg.Server.DSN == "" {
		return b, nil
	}
	prober, err := capability.Open(ctx, st.cfg.Server.DSN, st.logger)
	if err != nil {
		return nil, err
	}
	b.prober = prober
	return b, nil
}

func (b *backend) serverInfo() server.ServerInfoFunc {
	if b.prober == nil {
		return func(_ context.Context, id string) (node.ServerInfo, error) {
			return node.ServerInfo{ID: id, Type: capability.ServerPostgres, Version: server.DefaultServerVersion}, nil
		}
	}
	return b.prober.Probe
}

// prepare returns the catalog hook that needs the database, or nil.
func (b *backend) prepare() func(ctx context.Context, c *schema.Catalog) error {
	if b == nil || b.prober == nil {
		return nil
	}
	return func(ctx context.Context, c *schema.Catalog) error {
		return catalog.BindRoles(ctx, c, b.prober.Roles)
	}
}

func (b *backend) Close() {
	if b.prober == nil {
		return
	}
	if err := b.prober.Close(); err != nil {
		b.logger.Warn("cli: close database", "error", err)
	}
}

// dialogFlags are the request flags shared by render and fill.
type dialogFlags struct {
	mode      string
	id        string
	sid       string
	ancestors []string
}

func (f *dialogFlags) register(cmd *cobra.Command, defaultMode string) {
	cmd.Flags().StringVar(&f.mode, "mode", defaultMode, "view mode (properties|edit|create)")
	cmd.Flags().StringVar(&f.id, "id", "", "id of the record being edited")
	cmd.Flags().StringVar(&f.sid, "sid", "1", "id of the connected server")
	cmd.Flags().StringArrayVar(&f.ancestors, "ancestor", nil, "tree ancestor as type:id, root first (repeatable)")
}

func (f *dialogFlags) request(ctx context.Context, c *schema.Catalog, typ string, lookup server.ServerInfoFunc) (orchestrator.Request, error) {
	spec, ok := c.Node(typ)
	if !ok {
		return orchestrator.Request{}, fmt.Errorf("unknown node type %q", typ)
	}
	ancestors, err := node.ParseAncestors(f.ancestors)
	if err != nil {
		return orchestrator.Request{}, err
	}
	info, err := lookup(ctx, f.sid)
	if err != nil {
		return orchestrator.Request{}, err
	}
	req := orchestrator.Request{
		Type: typ,
		Mode: schema.ParseMode(f.mode),
		Info: node.ContextInfo{Server: &info, Ancestors: ancestors},
	}
	if f.id != "" {
		req.TreeData = node.TreeData{ID: f.id}
		if mt, ok := c.Model(spec.Model); ok && mt.IDAttribute != "" {
			req.Attributes = map[string]any{mt.IDAttribute: f.id}
		}
	}
	return req, nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Form written to %s\n", path)
	return nil
}
