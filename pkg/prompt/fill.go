package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/goliatone/go-adminform/pkg/controls"
	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/resolver"
	"github.com/goliatone/go-adminform/pkg/schema"
	"github.com/goliatone/go-adminform/pkg/widgets"
)

const defaultMaxAttempts = 3

// Option customises a Filler.
type Option func(*Filler)

// WithLogger sets the logger skipped controls are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMaxAttempts bounds how often a rejected value is asked again.
func WithMaxAttempts(n int) Option {
	return func(f *Filler) {
		if n > 0 {
			f.attempts = n
		}
	}
}

// Filler walks mounted controls and asks the driver for a value per input,
// feeding answers through the controls' own change handling so parsing,
// validation and dependent re-renders behave as in the browser.
type Filler struct {
	driver   Driver
	logger   *slog.Logger
	attempts int
}

// NewFiller constructs a Filler for driver.
func NewFiller(driver Driver, opts ...Option) *Filler {
	f := &Filler{
		driver:   driver,
		logger:   slog.New(slog.DiscardHandler),
		attempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

type parent interface {
	Controls() []controls.Control
}

// Fill prompts for every visible, enabled input among ctrls. Containers are
// descended into.
func (f *Filler) Fill(ctx context.Context, ctrls []controls.Control) error {
	if f.driver == nil {
		return fmt.Errorf("prompt: driver is required")
	}
	for _, ctrl := range ctrls {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.fill(ctx, ctrl); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filler) fill(ctx context.Context, ctrl controls.Control) error {
	field := ctrl.Field()
	if p, ok := ctrl.(parent); ok {
		return f.Fill(ctx, p.Controls())
	}
	m := modelOf(ctrl)
	if m == nil || !field.IsVisible(m) || field.IsDisabled(m) {
		return nil
	}
	switch c := ctrl.(type) {
	case *controls.Grid:
		return f.grid(ctx, c)
	case *controls.Select:
		return f.choose(ctx, c, field, m)
	case *controls.Checkbox:
		return f.confirm(ctx, c, field, m)
	case controls.Input:
		return f.text(ctx, c, field, m)
	default:
		f.logger.Debug("prompt: skipping control", "field", field.Name, "control", field.Control)
		return nil
	}
}

func modelOf(ctrl controls.Control) *model.Model {
	if mc, ok := ctrl.(interface{ Model() *model.Model }); ok {
		return mc.Model()
	}
	return nil
}

func (f *Filler) text(ctx context.Context, c controls.Input, field resolver.Field, m *model.Model) error {
	for attempt := 0; attempt < f.attempts; attempt++ {
		current := display(m.Get(field.Name))
		var (
			answer string
			err    error
		)
		if field.Control == widgets.ControlTextarea {
			answer, err = f.driver.TextArea(ctx, TextAreaConfig{
				Message: message(field, m),
				Default: current,
				Help:    field.Descriptor.HelpMessage,
			})
		} else {
			answer, err = f.driver.Input(ctx, InputConfig{
				Message: message(field, m),
				Default: current,
				Help:    field.Descriptor.HelpMessage,
			})
		}
		if err != nil {
			return err
		}
		if answer == current {
			return nil
		}
		c.Change(answer)
		msg := m.ErrorAt(field.Name)
		if msg == "" {
			return nil
		}
		if err := f.driver.Info(ctx, msg); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrTooManyAttempts, field.Name)
}

func (f *Filler) choose(ctx context.Context, c *controls.Select, field resolver.Field, m *model.Model) error {
	options := c.Choices()
	if len(options) == 0 {
		return nil
	}
	labels := make([]string, 0, len(options)+1)
	current := display(m.Get(field.Name))
	def := 0
	if !field.IsRequired(m) {
		labels = append(labels, "")
	}
	offset := len(labels)
	for i, opt := range options {
		labels = append(labels, opt.Label)
		if display(opt.Value) == current && current != "" {
			def = i + offset
		}
	}
	idx, err := f.driver.Select(ctx, SelectConfig{
		Message:      message(field, m),
		Options:      labels,
		DefaultIndex: def,
		Help:         field.Descriptor.HelpMessage,
	})
	if err != nil {
		return err
	}
	if idx < offset || idx >= len(labels) {
		c.Change("")
		return nil
	}
	c.Change(display(options[idx-offset].Value))
	return nil
}

func (f *Filler) confirm(ctx context.Context, c *controls.Checkbox, field resolver.Field, m *model.Model) error {
	current, _ := m.Get(field.Name).(bool)
	answer, err := f.driver.Confirm(ctx, ConfirmConfig{
		Message: message(field, m),
		Default: current,
		Help:    field.Descriptor.HelpMessage,
	})
	if err != nil {
		return err
	}
	c.Change(strconv.FormatBool(answer))
	return nil
}

func (f *Filler) grid(ctx context.Context, g *controls.Grid) error {
	field := g.Field()
	coll := g.Collection()
	for {
		more, err := f.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Add a row to %s?", labelOf(field)),
		})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if !g.AddRow() {
			return f.driver.Info(ctx, fmt.Sprintf("%s does not accept another row", labelOf(field)))
		}
		idx := coll.Len() - 1
		row := coll.At(idx)
		for _, col := range g.Columns() {
			if !col.Field.IsEditable(row) {
				continue
			}
			if err := f.cell(ctx, g, idx, row, col.Field); err != nil {
				return err
			}
		}
	}
}

func (f *Filler) cell(ctx context.Context, g *controls.Grid, idx int, row *model.Model, field resolver.Field) error {
	if field.Cell == widgets.CellSelect {
		options := cellOptions(field, row)
		if len(options) == 0 {
			return nil
		}
		labels := make([]string, len(options))
		for i, opt := range options {
			labels[i] = opt.Label
		}
		choice, err := f.driver.Select(ctx, SelectConfig{Message: labelOf(field), Options: labels})
		if err != nil {
			return err
		}
		if choice >= 0 && choice < len(options) {
			g.SetCell(idx, field.Name, display(options[choice].Value))
		}
		return nil
	}
	for attempt := 0; attempt < f.attempts; attempt++ {
		answer, err := f.driver.Input(ctx, InputConfig{Message: labelOf(field)})
		if err != nil {
			return err
		}
		if g.SetCell(idx, field.Name, answer) {
			return nil
		}
		if answer == "" {
			return nil
		}
		if err := f.driver.Info(ctx, fmt.Sprintf("%q is not a valid %s", answer, labelOf(field))); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrTooManyAttempts, field.Name)
}

func cellOptions(field resolver.Field, row *model.Model) []schema.Option {
	if field.Descriptor.OptionsFunc == nil {
		return field.Descriptor.Options
	}
	options, err := field.Descriptor.OptionsFunc(row)
	if err != nil {
		return nil
	}
	return options
}

func labelOf(field resolver.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func message(field resolver.Field, m *model.Model) string {
	label := labelOf(field)
	if field.IsRequired(m) {
		return label + " *"
	}
	return label
}

func display(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}
