package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-adminform/pkg/controls"
	"github.com/goliatone/go-adminform/pkg/eventloop"
	"github.com/goliatone/go-adminform/pkg/form"
	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/msql"
	"github.com/goliatone/go-adminform/pkg/node"
	"github.com/goliatone/go-adminform/pkg/resolver"
	"github.com/goliatone/go-adminform/pkg/schema"
	"github.com/goliatone/go-adminform/pkg/themes"
	"github.com/goliatone/go-adminform/pkg/widgets"
)

// Layout selects the container a dialog is rendered in.
type Layout string

const (
	LayoutTabs     Layout = "tabs"
	LayoutFieldset Layout = "fieldset"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithCatalog sets the model types and nodes dialogs are opened for.
func WithCatalog(catalog *schema.Catalog) Option {
	return func(o *Orchestrator) {
		o.catalog = catalog
	}
}

// WithRegistry injects the control type registry.
func WithRegistry(registry *widgets.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithFactories injects the control factories. Inline containers are
// registered on top.
func WithFactories(factories *controls.Factories) Option {
	return func(o *Orchestrator) {
		o.factories = factories
	}
}

// WithFetcher sets the SQL preview fetcher.
func WithFetcher(fetcher msql.Fetcher) Option {
	return func(o *Orchestrator) {
		o.fetcher = fetcher
	}
}

// WithScheduler sets the scheduler asynchronous work runs on.
func WithScheduler(scheduler eventloop.Scheduler) Option {
	return func(o *Orchestrator) {
		o.scheduler = scheduler
	}
}

// WithLogger sets the logger shared by the resolver and controls.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithIDs replaces the DOM id generator.
func WithIDs(fn func(prefix string) string) Option {
	return func(o *Orchestrator) {
		o.ids = fn
	}
}

// WithTemplateOverrides registers template sets consulted before the
// built-in control templates.
func WithTemplateOverrides(files ...fs.FS) Option {
	return func(o *Orchestrator) {
		o.overrides = append(o.overrides, files...)
	}
}

// WithThemeSelector passes a go-theme selector used to resolve the theme of
// each request.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(o *Orchestrator) {
		o.selector = selector
	}
}

// WithThemeAssets sets the filesystem theme partials are read from.
func WithThemeAssets(files fs.FS) Option {
	return func(o *Orchestrator) {
		o.themeFS = files
	}
}

// WithThemeFallbacks sets partials used when a theme declares none.
func WithThemeFallbacks(fallbacks map[string]string) Option {
	return func(o *Orchestrator) {
		o.fallbacks = fallbacks
	}
}

// WithTransformers registers record transformers run, in order, after the
// built-in new record defaults.
func WithTransformers(transformers ...Transformer) Option {
	return func(o *Orchestrator) {
		o.transformers = append(o.transformers, transformers...)
	}
}

// Orchestrator opens dialogs for catalog nodes. It holds no per-dialog state
// and may be shared.
type Orchestrator struct {
	catalog      *schema.Catalog
	nodes        node.Set
	registry     *widgets.Registry
	resolver     *resolver.Resolver
	factories    *controls.Factories
	fetcher      msql.Fetcher
	scheduler    eventloop.Scheduler
	logger       *slog.Logger
	ids          func(prefix string) string
	overrides    []fs.FS
	selector     theme.ThemeSelector
	themeFS      fs.FS
	fallbacks    map[string]string
	transformers []Transformer
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	if o.catalog == nil {
		o.catalog = schema.NewCatalog()
	}
	o.nodes = node.FromCatalog(o.catalog)
	if o.registry == nil {
		o.registry = widgets.NewRegistry()
	}
	o.resolver = resolver.New(
		resolver.WithRegistry(o.registry),
		resolver.WithNodes(o.nodes),
		resolver.WithLogger(o.logger),
	)
	if o.factories == nil {
		o.factories = controls.NewFactories()
	} else {
		o.factories = o.factories.Clone()
	}
	form.RegisterControls(o.factories)
	o.transformers = append([]Transformer{NewRecordDefaults()}, o.transformers...)
	return o
}

// Catalog returns the catalog dialogs are opened from.
func (o *Orchestrator) Catalog() *schema.Catalog {
	return o.catalog
}

// Resolver returns the shared resolver.
func (o *Orchestrator) Resolver() *resolver.Resolver {
	return o.resolver
}

// Request describes the dialog to open.
type Request struct {
	// Type is the node type, e.g. "user_mapping".
	Type string
	Mode schema.Mode
	Info node.ContextInfo
	// TreeData identifies the record being edited. Empty for new records.
	TreeData node.TreeData
	// Attributes seed the record.
	Attributes map[string]any
	Layout     Layout

	ThemeName    string
	ThemeVariant string

	node node.Node
}

// Node returns the resolved schema node. It is set once Open has looked the
// type up, so transformers can rely on it.
func (r Request) Node() node.Node {
	return r.node
}

// Session is an open dialog bound to its record.
type Session struct {
	Node   node.Node
	Model  *model.Model
	Groups []resolver.Group
	Env    *controls.Env
	Theme  *theme.RendererConfig

	dialog   *form.Dialog
	fieldset *form.Fieldset
}

// Dialog returns the tabbed container, or nil for fieldset layouts.
func (s *Session) Dialog() *form.Dialog {
	return s.dialog
}

// Fieldset returns the section container, or nil for tab layouts.
func (s *Session) Fieldset() *form.Fieldset {
	return s.fieldset
}

// Controls returns the top-level controls.
func (s *Session) Controls() []controls.Control {
	if s.dialog != nil {
		return s.dialog.Controls()
	}
	return s.fieldset.Controls()
}

// HTML renders the current markup.
func (s *Session) HTML() string {
	if s.dialog != nil {
		return s.dialog.HTML()
	}
	return s.fieldset.HTML()
}

// Close tears the dialog down.
func (s *Session) Close() {
	if s.dialog != nil {
		s.dialog.Remove()
		return
	}
	s.fieldset.Remove()
}

// Open builds the record, resolves its schema and renders the dialog.
func (o *Orchestrator) Open(ctx context.Context, req Request) (*Session, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" {
		return nil, errors.New("orchestrator: node type is required")
	}
	spec, ok := o.catalog.Node(req.Type)
	if !ok {
		return nil, fmt.Errorf("orchestrator: unknown node type %q", req.Type)
	}
	mt, ok := o.catalog.Model(spec.Model)
	if !ok {
		return nil, fmt.Errorf("orchestrator: node %q: %w: %q", req.Type, schema.ErrUnknownModel, spec.Model)
	}
	if req.Mode == "" {
		req.Mode = schema.ModeProperties
	}
	req.node, _ = o.nodes.Node(req.Type)

	cfg, overrides, err := o.theme(req)
	if err != nil {
		return nil, err
	}
	env, err := o.env(ctx, overrides)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		if err := env.Templates.GlobalContext(themes.Globals(cfg)); err != nil {
			return nil, fmt.Errorf("orchestrator: theme globals: %w", err)
		}
	}

	m := mt.NewModel(req.Attributes)
	for _, t := range o.transformers {
		if t == nil {
			continue
		}
		if err := t.Transform(ctx, req, m); err != nil {
			return nil, fmt.Errorf("orchestrator: transform record: %w", err)
		}
	}
	m.Commit()

	groups := o.resolver.Resolve(resolver.Request{
		Info:     req.Info,
		Type:     mt,
		Mode:     req.Mode,
		Node:     req.node,
		TreeData: req.TreeData,
	})

	session := &Session{Node: req.node, Model: m, Groups: groups, Env: env, Theme: cfg}
	switch req.Layout {
	case LayoutFieldset:
		session.fieldset = form.NewFieldset(env, m, groups)
		err = session.fieldset.Render()
	case LayoutTabs, "":
		session.dialog = form.NewDialog(env, m, groups)
		err = session.dialog.Render()
	default:
		return nil, fmt.Errorf("orchestrator: unknown layout %q", req.Layout)
	}
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("orchestrator: render %s dialog: %w", req.Type, err)
	}
	o.logger.Debug("orchestrator: dialog opened", "node", req.Type, "mode", req.Mode, "groups", len(groups))
	return session, nil
}

// Generate renders the dialog markup for req and tears it down again.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	session, err := o.Open(ctx, req)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	return []byte(session.HTML()), nil
}

func (o *Orchestrator) env(ctx context.Context, overrides []fs.FS) (*controls.Env, error) {
	opts := []controls.EnvOption{
		controls.WithResolver(o.resolver),
		controls.WithFactories(o.factories),
		controls.WithLogger(o.logger),
		controls.WithContext(ctx),
		controls.WithTemplateOverrides(overrides...),
	}
	if o.fetcher != nil {
		opts = append(opts, controls.WithFetcher(o.fetcher))
	}
	if o.scheduler != nil {
		opts = append(opts, controls.WithScheduler(o.scheduler))
	}
	if o.ids != nil {
		opts = append(opts, controls.WithIDs(o.ids))
	}
	env, err := controls.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return env, nil
}

func (o *Orchestrator) theme(req Request) (*theme.RendererConfig, []fs.FS, error) {
	overrides := append([]fs.FS(nil), o.overrides...)
	if o.selector == nil {
		return nil, overrides, nil
	}
	sel, err := o.selector.Select(req.ThemeName, req.ThemeVariant)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: select theme: %w", err)
	}
	cfg := themes.RendererConfig(sel, o.fallbacks)
	if o.themeFS != nil {
		themed, err := themes.Overrides(cfg, o.themeFS)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: theme partials: %w", err)
		}
		if themed != nil {
			overrides = append([]fs.FS{themed}, overrides...)
		}
	}
	return cfg, overrides, nil
}
