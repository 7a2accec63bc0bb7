package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-adminform/pkg/node"
	"github.com/goliatone/go-adminform/pkg/orchestrator"
	"github.com/goliatone/go-adminform/pkg/schema"
	"github.com/goliatone/go-adminform/pkg/themes"
)

type nodeSummary struct {
	Type   string `json:"type"`
	Label  string `json:"label"`
	Model  string `json:"model"`
	HasSQL bool   `json:"hasSQL"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	c, _ := s.current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"nodes":  len(c.NodeTypes()),
	})
}

func (s *Server) handleNodes(w http.ResponseWriter, _ *http.Request) {
	c, _ := s.current()
	out := make([]nodeSummary, 0, len(c.NodeTypes()))
	for _, typ := range c.NodeTypes() {
		spec, _ := c.Node(typ)
		out = append(out, nodeSummary{Type: typ, Label: spec.Label, Model: spec.Model, HasSQL: spec.HasSQL})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDialog renders GET /nodes/{type}/dialog. Query parameters:
// mode, id (record id), sid (server id), ancestor=type:id (repeated, root
// first), layout (tabs|fieldset), theme, variant.
func (s *Server) handleDialog(w http.ResponseWriter, r *http.Request) {
	c, orch := s.current()
	typ := chi.URLParam(r, "type")
	spec, ok := c.Node(typ)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown node type %q", typ))
		return
	}
	q := r.URL.Query()

	layout := orchestrator.Layout(q.Get("layout"))
	switch layout {
	case "", orchestrator.LayoutTabs, orchestrator.LayoutFieldset:
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown layout %q", layout))
		return
	}
	ancestors, err := node.ParseAncestors(q["ancestor"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sid := q.Get("sid")
	if sid == "" {
		sid = "1"
	}
	server, err := s.serverInfo(r, sid)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	req := orchestrator.Request{
		Type:         typ,
		Mode:         schema.ParseMode(q.Get("mode")),
		Info:         node.ContextInfo{Server: &server, Ancestors: ancestors},
		Layout:       layout,
		ThemeName:    q.Get("theme"),
		ThemeVariant: q.Get("variant"),
	}
	if id := q.Get("id"); id != "" {
		req.TreeData = node.TreeData{ID: id}
		if mt, ok := c.Model(spec.Model); ok && mt.IDAttribute != "" {
			req.Attributes = map[string]any{mt.IDAttribute: id}
		}
	}

	out, err := orch.Generate(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, themes.ErrUnknownTheme) {
			status = http.StatusBadRequest
		}
		s.logger.Error("server: render dialog", "node", typ, "error", err)
		writeError(w, status, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) serverInfo(r *http.Request, sid string) (node.ServerInfo, error) {
	if s.cfg.ServerInfo == nil {
		return node.ServerInfo{ID: sid, Type: "pg", Version: DefaultServerVersion}, nil
	}
	info, err := s.cfg.ServerInfo(r.Context(), sid)
	if err != nil {
		return node.ServerInfo{}, fmt.Errorf("server %s: %w", sid, err)
	}
	return info, nil
}

// handleMSQL answers the SQL preview contract with a comment listing the
// submitted attributes. The cache busting "_" parameter is ignored.
func (s *Server) handleMSQL(w http.ResponseWriter, r *http.Request) {
	c, _ := s.current()
	typ := chi.URLParam(r, "type")
	spec, ok := c.Node(typ)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown node type %q", typ))
		return
	}
	q := r.URL.Query()
	q.Del("_")
	keys := make([]string, 0, len(q))
	for key := range q {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	label := spec.Label
	if label == "" {
		label = typ
	}
	var b strings.Builder
	fmt.Fprintf(&b, "-- %s %s\n", label, strings.Trim(chi.URLParam(r, "*"), "/"))
	if len(keys) == 0 {
		b.WriteString("-- No updates.\n")
	}
	for _, key := range keys {
		fmt.Fprintf(&b, "--   %s = %s\n", key, q.Get(key))
	}
	writeJSON(w, http.StatusOK, map[string]string{"data": b.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
