package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-adminform/pkg/controls"
	"github.com/goliatone/go-adminform/pkg/eventloop"
	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/orchestrator"
	"github.com/goliatone/go-adminform/pkg/prompt"
	"github.com/goliatone/go-adminform/pkg/resolver"
	"github.com/goliatone/go-adminform/pkg/schema"
)

// newDriver builds the terminal prompt driver.
var newDriver = prompt.NewSurveyDriver

func newFillCmd() *cobra.Command {
	var (
		flags    dialogFlags
		attempts int
		output   string
		preview  bool
	)
	cmd := &cobra.Command{
		Use:   "fill <type>",
		Short: "Fill in a node dialog on the terminal and print the record",
		Long: `fill opens the dialog of a node type and asks for every visible,
enabled field in turn. Answers go through the same controls the HTML dialog
uses, so validation messages and dependent fields behave alike. The resulting
record is printed as JSON.

With --preview the SQL tab is shown once the record is complete and the SQL
returned by the preview endpoint (msql.base_url) is printed to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st := stateFrom(ctx)

			if preview && !schema.ParseMode(flags.mode).Interactive() {
				return fmt.Errorf("--preview needs --mode create or edit, got %q", flags.mode)
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
			req.Layout = orchestrator.LayoutFieldset

			var loop *eventloop.Loop
			if preview {
				loop = eventloop.New(0)
				defer loop.Wait()
				defer loop.Stop()
				opts = append(opts, orchestrator.WithScheduler(loop))
				req.Layout = orchestrator.LayoutTabs
			}

			orch := orchestrator.New(append(opts, orchestrator.WithCatalog(c))...)
			session, err := orch.Open(ctx, req)
			if err != nil {
				return err
			}
			defer session.Close()

			filler := prompt.NewFiller(newDriver(),
				prompt.WithLogger(st.logger),
				prompt.WithMaxAttempts(attempts),
			)
			if err := filler.Fill(ctx, session.Controls()); err != nil {
				return err
			}

			data, err := json.MarshalIndent(session.Model.ToJSON(), "", "  ")
			if err != nil {
				return fmt.Errorf("encode record: %w", err)
			}
			if err := writeOutput(cmd, output, append(data, '\n')); err != nil {
				return err
			}
			if !preview {
				return nil
			}

			sql, err := previewSQL(ctx, loop, session)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.ErrOrStderr(), sql)
			return err
		},
	}
	flags.register(cmd, "create")
	cmd.Flags().IntVar(&attempts, "attempts", 3, "times a rejected answer is asked again")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the record to this file instead of stdout")
	cmd.Flags().BoolVar(&preview, "preview", false, "fetch and print the SQL of the filled record (create and edit modes)")
	return cmd
}

// previewSQL shows the SQL tab of the session dialog and runs loop until the
// preview it starts has settled. Without changes the placeholder is returned
// and nothing is fetched.
func previewSQL(ctx context.Context, loop *eventloop.Loop, session *orchestrator.Session) (string, error) {
	dialog := session.Dialog()
	tab := findSQLTab(dialog.Controls())
	if tab == nil {
		return "", fmt.Errorf("node %s has no SQL preview", session.Node.Type())
	}

	var (
		fetching bool
		fetchErr error
	)
	subs := []*model.Subscription{
		session.Model.On(model.TopicMSQLFetching, func(model.Event) { fetching = true }),
		session.Model.On(model.TopicMSQLError, func(ev model.Event) {
			if notice, ok := ev.Payload.(model.MSQLNotice); ok {
				fetchErr = notice.Err
			}
		}),
		session.Model.On(model.TopicMSQLFetched, func(model.Event) { loop.Stop() }),
	}
	defer func() {
		for _, sub := range subs {
			sub.Off()
		}
	}()

	if err := dialog.ShowTabLabel(resolver.SQLGroup); err != nil {
		return "", err
	}
	if fetching {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, eventloop.ErrStopped) {
			return "", err
		}
	}
	if fetchErr != nil {
		return "", fmt.Errorf("sql preview: %w", fetchErr)
	}
	return tab.SQL(), nil
}

func findSQLTab(ctrls []controls.Control) *controls.SQLTab {
	for _, ctrl := range ctrls {
		if tab, ok := ctrl.(*controls.SQLTab); ok {
			return tab
		}
	}
	return nil
}
