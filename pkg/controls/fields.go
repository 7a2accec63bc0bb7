package controls

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/schema"
)

// Uneditable displays the value as plain text.
type Uneditable struct {
	*Base
}

// NewUneditable builds the read-only display control.
func NewUneditable(opts Options) (Control, error) {
	b, err := newBase(opts, "uneditable-input")
	if err != nil {
		return nil, err
	}
	c := &Uneditable{Base: b}
	c.bind(c)
	return c, nil
}

// Text is a free-text control: input, textarea or datepicker.
type Text struct {
	*Base
}

func newText(opts Options, template, inputType string) (Control, error) {
	b, err := newBase(opts, template)
	if err != nil {
		return nil, err
	}
	b.extra = func(data map[string]any) {
		data["inputType"] = inputType
	}
	c := &Text{Base: b}
	c.bind(c)
	return c, nil
}

// NewInput builds a single line text input.
func NewInput(opts Options) (Control, error) {
	return newText(opts, "input", "text")
}

// NewTextarea builds a multi line text input.
func NewTextarea(opts Options) (Control, error) {
	return newText(opts, "textarea", "")
}

// NewDatepicker builds a date input.
func NewDatepicker(opts Options) (Control, error) {
	return newText(opts, "datepicker", "text")
}

// Change commits raw as the field value.
func (c *Text) Change(raw string) bool {
	return c.commit(raw)
}

// Select renders a fixed or computed option list.
type Select struct {
	*Base
	emptyOption bool
}

// NewSelect builds a select control.
func NewSelect(opts Options) (Control, error) {
	return newSelect(opts, "select", false)
}

// NewSelect2 builds the searchable select. It always offers an empty
// leading option.
func NewSelect2(opts Options) (Control, error) {
	return newSelect(opts, "select2", true)
}

func newSelect(opts Options, template string, emptyOption bool) (Control, error) {
	b, err := newBase(opts, template)
	if err != nil {
		return nil, err
	}
	c := &Select{Base: b, emptyOption: emptyOption}
	b.extra = c.templateData
	c.bind(c)
	return c, nil
}

func (c *Select) templateData(data map[string]any) {
	options := c.options()
	if c.emptyOption {
		options = append([]schema.Option{{Label: "", Value: ""}}, options...)
	}
	data["options"] = optionData(options, c.RawValue())
	if c.emptyOption {
		config := map[string]any{"allowClear": true, "placeholder": c.field.Descriptor.Placeholder}
		for key, value := range c.field.Descriptor.Select2 {
			config[key] = value
		}
		encoded, err := json.Marshal(config)
		if err != nil {
			c.env.Logger.Warn("controls: encode select2 config", "field", c.field.Name, "error", err)
			encoded = []byte("{}")
		}
		data["select2"] = string(encoded)
	}
}

// Change commits the option whose value renders as raw. An empty raw value
// clears the field.
func (c *Select) Change(raw string) bool {
	for _, opt := range c.options() {
		if displayValue(opt.Value) == raw {
			return c.commit(opt.Value)
		}
	}
	if raw == "" {
		return c.commit(nil)
	}
	return false
}

// Choices returns the options currently offered.
func (c *Select) Choices() []schema.Option {
	return c.options()
}

// options returns the static options or the computed ones. A failing
// computation yields no options and a transform error notification.
func (b *Base) options() []schema.Option {
	desc := b.field.Descriptor
	if desc.OptionsFunc == nil {
		return desc.Options
	}
	options, err := desc.OptionsFunc(b.model)
	if err != nil {
		b.env.Logger.Warn("controls: options transform failed", "field", b.field.Name, "error", err)
		b.model.Trigger(model.TopicTransformError, model.TransformError{Field: b.field.Name, Err: err})
		return nil
	}
	return options
}

func optionData(options []schema.Option, raw any) []map[string]any {
	current := displayValue(raw)
	out := make([]map[string]any, 0, len(options))
	for _, opt := range options {
		value := displayValue(opt.Value)
		out = append(out, map[string]any{
			"label":    opt.Label,
			"value":    value,
			"selected": raw != nil && value == current,
		})
	}
	return out
}

// ReadonlyOption shows the label of the selected option.
type ReadonlyOption struct {
	*Base
}

// NewReadonlyOption builds the read-only select display.
func NewReadonlyOption(opts Options) (Control, error) {
	b, err := newBase(opts, "readonly-option")
	if err != nil {
		return nil, err
	}
	c := &ReadonlyOption{Base: b}
	b.extra = func(data map[string]any) {
		data["selectedLabel"] = ""
		current := displayValue(c.RawValue())
		for _, opt := range c.options() {
			if displayValue(opt.Value) == current {
				data["selectedLabel"] = opt.Label
				break
			}
		}
	}
	c.bind(c)
	return c, nil
}

// Checkbox is the boolean and switch control.
type Checkbox struct {
	*Base
}

// NewBoolean builds a checkbox.
func NewBoolean(opts Options) (Control, error) {
	return newCheckbox(opts, "boolean")
}

// NewSwitch builds an on/off switch. Labels default to True and False.
func NewSwitch(opts Options) (Control, error) {
	return newCheckbox(opts, "switch")
}

func newCheckbox(opts Options, template string) (Control, error) {
	b, err := newBase(opts, template)
	if err != nil {
		return nil, err
	}
	c := &Checkbox{Base: b}
	b.extra = func(data map[string]any) {
		data["checked"] = model.Truthy(c.RawValue())
		on, off := c.env.Messages.SwitchOn, c.env.Messages.SwitchOff
		if sw := c.field.Descriptor.Switch; sw != nil {
			if strings.TrimSpace(sw.OnText) != "" {
				on = sw.OnText
			}
			if strings.TrimSpace(sw.OffText) != "" {
				off = sw.OffText
			}
		}
		data["onText"] = on
		data["offText"] = off
	}
	c.bind(c)
	return c, nil
}

// Change commits the checked state: "true", "on" and "1" mean checked.
func (c *Checkbox) Change(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "on", "1":
		return c.commit(true)
	default:
		return c.commit(false)
	}
}
