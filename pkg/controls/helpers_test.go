package controls

import (
	"testing"

	"github.com/goliatone/go-adminform/pkg/dom"
	"github.com/goliatone/go-adminform/pkg/eventloop"
	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/resolver"
	"github.com/goliatone/go-adminform/pkg/schema"
)

type fixture struct {
	env   *Env
	sched *eventloop.Manual
}

func newFixture(t *testing.T, options ...EnvOption) fixture {
	t.Helper()
	sched := eventloop.NewManual()
	base := []EnvOption{WithScheduler(sched), WithIDs(SequentialIDs())}
	env, err := NewEnv(append(base, options...)...)
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}
	return fixture{env: env, sched: sched}
}

func (fx fixture) field(t *testing.T, mt *schema.ModelType, mode schema.Mode, name string) resolver.Field {
	t.Helper()
	for _, group := range fx.env.Resolver.Resolve(resolver.Request{Type: mt, Mode: mode}) {
		for _, f := range group.Fields {
			if f.Name == name {
				return f
			}
		}
	}
	t.Fatalf("field %q not resolved in mode %s", name, mode)
	return resolver.Field{}
}

func (fx fixture) mount(t *testing.T, f resolver.Field, m *model.Model) Control {
	t.Helper()
	ctrl, err := fx.env.Factories.New(Options{Field: f, Model: m, Env: fx.env})
	if err != nil {
		t.Fatalf("mount %s: %v", f.Name, err)
	}
	t.Cleanup(ctrl.Remove)
	return ctrl
}

func firstTag(t *testing.T, el *dom.Element, tag string) *dom.Element {
	t.Helper()
	found := el.FindByTag(tag)
	if len(found) == 0 {
		t.Fatalf("no <%s> in %s", tag, el.String())
	}
	return found[0]
}

func hasAttr(el *dom.Element, key string) bool {
	_, ok := el.Attr(key)
	return ok
}

func umOptionType() *schema.ModelType {
	return &schema.ModelType{
		Name: "um_option",
		Schema: []schema.Field{
			{ID: "umoption", Type: schema.TypeText, Label: "Option"},
			{ID: "umvalue", Type: schema.TypeText, Label: "Value"},
		},
	}
}

func ptr(v float64) *float64 {
	return &v
}
