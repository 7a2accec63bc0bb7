package controls

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/msql"
)

// ErrNoFetcher is reported when a preview is requested without a fetcher.
var ErrNoFetcher = errors.New("controls: no sql preview fetcher configured")

// SQLTab shows the SQL preview of the pending changes. It fetches whenever
// its tab of the owning dialog is shown and the model changed in this
// session.
type SQLTab struct {
	*Base
	sql     string
	history []string
	token   uint64
}

// NewSQLTab builds the SQL preview control.
func NewSQLTab(opts Options) (Control, error) {
	b, err := newBase(opts, "sql-tab")
	if err != nil {
		return nil, err
	}
	c := &SQLTab{Base: b}
	b.extra = func(data map[string]any) {
		data["value"] = c.sql
		data["controlsClass"] = c.env.Classes.SQLControls
		data["disabled"] = false
	}
	c.bind(c)
	c.subs = append(c.subs, c.model.On(model.TopicTabChanged, c.onTabChanged))
	return c, nil
}

// SQL returns the text currently shown.
func (c *SQLTab) SQL() string {
	return c.sql
}

// History returns the texts shown since the last successful fetch.
func (c *SQLTab) History() []string {
	return append([]string(nil), c.history...)
}

func (c *SQLTab) onTabChanged(ev model.Event) {
	change, ok := ev.Payload.(model.TabChange)
	if !ok || c.removed || c.dialog == nil || change.Shown != c.tabIndex {
		return
	}
	c.Refresh()
}

// Refresh shows the no-change placeholder or starts a preview fetch.
func (c *SQLTab) Refresh() {
	c.token++
	if !c.model.SessionChanged() {
		c.history = nil
		c.setSQL(c.env.Messages.SQLNoChange)
		return
	}

	notice := model.MSQLNotice{Method: http.MethodGet}
	target := c.field.SchemaNode
	if target != nil {
		notice.Node = target.Type()
	}
	c.model.Trigger(model.TopicMSQLFetching, notice)

	url, err := c.previewURL()
	if err != nil {
		notice.Err = err
		c.env.Logger.Error("controls: sql preview url", "node", notice.Node, "error", err)
		c.model.Trigger(model.TopicMSQLError, notice)
		c.model.Trigger(model.TopicMSQLFetched, notice)
		return
	}
	notice.URL = url

	token := c.token
	req := msql.Request{URL: url, Payload: c.model.ToJSON()}
	fetcher := c.env.Fetcher
	ctx := c.env.Context
	c.env.Scheduler.Go(func() func() {
		var (
			resp msql.Response
			err  = ErrNoFetcher
		)
		if fetcher != nil {
			resp, err = fetcher.Fetch(ctx, req)
		}
		return func() { c.applyPreview(token, notice, resp, err) }
	})
}

func (c *SQLTab) previewURL() (string, error) {
	target := c.field.SchemaNode
	if target == nil {
		return "", errors.New("controls: sql preview needs a schema node")
	}
	url, err := target.GenerateURL("msql", c.field.TreeData, !c.model.IsNew(), c.field.Info)
	if err != nil {
		return "", fmt.Errorf("controls: generate msql url: %w", err)
	}
	return url, nil
}

// applyPreview runs on the loop. Results of superseded activations are
// dropped; a removed control ignores everything.
func (c *SQLTab) applyPreview(token uint64, notice model.MSQLNotice, resp msql.Response, err error) {
	if c.removed {
		return
	}
	if token == c.token {
		if err != nil {
			notice.Err = err
			c.env.Logger.Error("controls: sql preview fetch", "url", notice.URL, "error", err)
			c.model.Trigger(model.TopicMSQLError, notice)
		} else {
			c.history = nil
			c.setSQL(resp.Data)
		}
	}
	c.model.Trigger(model.TopicMSQLFetched, notice)
}

func (c *SQLTab) setSQL(text string) {
	c.sql = text
	c.history = append(c.history, text)
	if err := c.Render(); err != nil {
		c.env.Logger.Error("controls: render sql preview", "error", err)
	}
}
