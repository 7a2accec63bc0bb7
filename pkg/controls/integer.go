package controls

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var integerPattern = regexp.MustCompile(`^-?[0-9]*$`)

// Integer is a numeric input that only commits whole numbers within the
// field's bounds.
type Integer struct {
	*Base
}

// NewInteger builds the integer control.
func NewInteger(opts Options) (Control, error) {
	b, err := newBase(opts, "integer")
	if err != nil {
		return nil, err
	}
	c := &Integer{Base: b}
	b.extra = func(data map[string]any) {
		data["min"] = bound(c.field.Descriptor.Min)
		data["max"] = bound(c.field.Descriptor.Max)
		if c.field.Descriptor.MaxLength == 0 {
			data["maxlength"] = 255
		}
	}
	c.bind(c)
	return c, nil
}

// Change validates raw and commits it as an int64. The first failing rule
// sets the field error and nothing is committed. An empty value clears the
// field.
func (c *Integer) Change(raw string) bool {
	raw = strings.TrimSpace(raw)
	desc := c.field.Descriptor
	messages := c.env.Messages

	if raw == "" {
		c.clearError()
		c.commit(nil)
		c.syncInput("")
		return true
	}
	if !integerPattern.MatchString(raw) {
		c.setError(fmt.Sprintf(messages.MustBeInt, c.field.Label))
		return false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.setError(fmt.Sprintf(messages.MustBeInt, c.field.Label))
		return false
	}
	if desc.Min != nil && float64(n) < *desc.Min {
		c.setError(fmt.Sprintf(messages.MustGrEq, c.field.Label, bound(desc.Min)))
		return false
	}
	if desc.Max != nil && float64(n) > *desc.Max {
		c.setError(fmt.Sprintf(messages.MustLessEq, c.field.Label, bound(desc.Max)))
		return false
	}

	c.clearError()
	c.commit(n)
	c.syncInput(strconv.FormatInt(n, 10))
	return true
}

// syncInput updates the rendered input in place; the control does not
// re-render for its own commits.
func (c *Integer) syncInput(value string) {
	for _, input := range c.el.FindByTag("input") {
		input.SetAttr("value", value)
	}
}

func bound(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
