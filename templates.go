package adminform

import (
	"io/fs"

	"github.com/goliatone/go-adminform/pkg/controls"
)

// EmbeddedTemplates exposes the built-in control templates so callers can
// copy or extend them for theme partials and overrides.
func EmbeddedTemplates() fs.FS {
	return controls.Templates()
}
