package controls

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-adminform/pkg/eventloop"
	"github.com/goliatone/go-adminform/pkg/msql"
	"github.com/goliatone/go-adminform/pkg/render/template"
	"github.com/goliatone/go-adminform/pkg/render/template/pongo"
	"github.com/goliatone/go-adminform/pkg/resolver"
)

//go:embed templates/*.tpl
var embeddedTemplates embed.FS

// Templates returns the built-in control templates.
func Templates() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(fmt.Sprintf("controls: embedded templates: %v", err))
	}
	return sub
}

// Classes holds the CSS class lists controls render with. Themes replace them.
type Classes struct {
	ControlLabel    string
	Controls        string
	SQLControls     string
	Group           string
	Control         string
	HelpMessage     string
	Hidden          string
	Error           string
	ErrorMessage    string
	Tab             string
	SetGroup        string
	SetGroupContent string
	GridBody        string
	SubNodeBody     string
	GridTable       string
	AddButton       string
}

// DefaultClasses returns the Bootstrap 3 class lists.
func DefaultClasses() Classes {
	return Classes{
		ControlLabel:    "control-label col-sm-4",
		Controls:        "pgadmin-controls col-sm-8",
		SQLControls:     "pgadmin-controls col-sm-12",
		Group:           "pgadmin-control-group form-group col-xs-12",
		Control:         "form-control",
		HelpMessage:     "help-block",
		Hidden:          "hidden",
		Error:           "has-error",
		ErrorMessage:    "pgadmin-control-error-message col-xs-12 help-block",
		Tab:             "backform-tab col-xs-12",
		SetGroup:        "set-group col-xs-12",
		SetGroupContent: "fieldset-content col-xs-12",
		GridBody:        "pgadmin-control-group backgrid form-group col-xs-12 object subnode-body",
		SubNodeBody:     "pgadmin-control-group backgrid form-group col-xs-12 object subnode",
		GridTable:       "backgrid table-bordered",
		AddButton:       "btn-sm btn-default add",
	}
}

// Messages holds user facing strings. Format verbs are filled with the field
// label and the bound.
type Messages struct {
	MustBeInt   string
	MustGrEq    string
	MustLessEq  string
	SQLNoChange string
	GridAdd     string
	SubNodeAdd  string
	SwitchOn    string
	SwitchOff   string
}

// DefaultMessages returns the English messages.
func DefaultMessages() Messages {
	return Messages{
		MustBeInt:   "'%s' must be an integer.",
		MustGrEq:    "'%s' must be greater than or equal to %s.",
		MustLessEq:  "'%s' must be less than or equal to %s.",
		SQLNoChange: "-- Nothing changed",
		GridAdd:     "ADD",
		SubNodeAdd:  "Add",
		SwitchOn:    "True",
		SwitchOff:   "False",
	}
}

// Env carries the collaborators every control needs. It is built once and
// shared by all controls of a dialog.
type Env struct {
	Templates template.TemplateRenderer
	Resolver  *resolver.Resolver
	Factories *Factories
	Scheduler eventloop.Scheduler
	Fetcher   msql.Fetcher
	Logger    *slog.Logger
	Classes   Classes
	Messages  Messages
	// IDs returns a unique DOM id with the given prefix.
	IDs func(prefix string) string
	// Context bounds preview fetches.
	Context context.Context
}

// EnvOption customises NewEnv.
type EnvOption func(*envConfig)

type envConfig struct {
	env       Env
	overrides []fs.FS
}

// WithTemplates replaces the template renderer.
func WithTemplates(renderer template.TemplateRenderer) EnvOption {
	return func(cfg *envConfig) {
		cfg.env.Templates = renderer
	}
}

// WithTemplateOverrides layers partials over the built-in templates. Ignored
// when WithTemplates is used.
func WithTemplateOverrides(files ...fs.FS) EnvOption {
	return func(cfg *envConfig) {
		cfg.overrides = append(cfg.overrides, files...)
	}
}

// WithResolver sets the resolver used for grid columns.
func WithResolver(r *resolver.Resolver) EnvOption {
	return func(cfg *envConfig) {
		cfg.env.Resolver = r
	}
}

// WithFactories sets the control factories.
func WithFactories(f *Factories) EnvOption {
	return func(cfg *envConfig) {
		cfg.env.Factories = f
	}
}

// WithScheduler sets the loop scheduler.
func WithScheduler(s eventloop.Scheduler) EnvOption {
	return func(cfg *envConfig) {
		cfg.env.Scheduler = s
	}
}

// WithFetcher sets the SQL preview fetcher.
func WithFetcher(f msql.Fetcher) EnvOption {
	return func(cfg *envConfig) {
		cfg.env.Fetcher = f
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EnvOption {
	return func(cfg *envConfig) {
		cfg.env.Logger = logger
	}
}

// WithClasses replaces the class lists.
func WithClasses(classes Classes) EnvOption {
	return func(cfg *envConfig) {
		cfg.env.Classes = classes
	}
}

// WithMessages replaces the user facing strings.
func WithMessages(messages Messages) EnvOption {
	return func(cfg *envConfig) {
		cfg.env.Messages = messages
	}
}

// WithIDs replaces the DOM id generator.
func WithIDs(fn func(prefix string) string) EnvOption {
	return func(cfg *envConfig) {
		cfg.env.IDs = fn
	}
}

// WithContext sets the context preview fetches run under.
func WithContext(ctx context.Context) EnvOption {
	return func(cfg *envConfig) {
		cfg.env.Context = ctx
	}
}

// NewEnv builds an Env. Without WithScheduler a Manual scheduler is used and
// nothing asynchronous runs until it is driven.
func NewEnv(options ...EnvOption) (*Env, error) {
	cfg := &envConfig{env: Env{
		Classes:  DefaultClasses(),
		Messages: DefaultMessages(),
	}}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	env := cfg.env

	if env.Templates == nil {
		engine, err := pongo.New(
			pongo.WithFS(Templates()),
			pongo.WithOverrides(cfg.overrides...),
		)
		if err != nil {
			return nil, fmt.Errorf("controls: template engine: %w", err)
		}
		env.Templates = engine
	}
	if env.Resolver == nil {
		env.Resolver = resolver.New()
	}
	if env.Factories == nil {
		env.Factories = NewFactories()
	}
	if env.Scheduler == nil {
		env.Scheduler = eventloop.NewManual()
	}
	if env.Logger == nil {
		env.Logger = slog.New(slog.DiscardHandler)
	}
	if env.IDs == nil {
		env.IDs = UUIDs
	}
	if env.Context == nil {
		env.Context = context.Background()
	}
	return &env, nil
}

// UUIDs is the default id generator.
func UUIDs(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SequentialIDs returns a deterministic generator: prefix1, prefix2, ...
func SequentialIDs() func(prefix string) string {
	var (
		mu sync.Mutex
		n  int
	)
	return func(prefix string) string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

var (
	markupPolicyOnce sync.Once
	markupPolicy     *bluemonday.Policy
)

// sanitizeMarkup cleans labels and help messages, which templates render
// unescaped.
func sanitizeMarkup(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(markupSanitizer().Sanitize(trimmed))
}

func markupSanitizer() *bluemonday.Policy {
	markupPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "i", "em", "strong", "code", "br", "span", "small")
		policy.AllowAttrs("class").OnElements("span", "code")
		policy.AllowStandardURLs()
		policy.AllowAttrs("href", "target").OnElements("a")
		policy.RequireNoFollowOnLinks(true)
		markupPolicy = policy
	})
	return markupPolicy
}
