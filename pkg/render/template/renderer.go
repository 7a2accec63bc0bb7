package template

import "io"

// TemplateRenderer renders control templates. Rendered markup is returned
// and also copied to every writer in out.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(content string, data any, out ...io.Writer) (string, error)
	// GlobalContext merges data into the values every template sees.
	GlobalContext(data any) error
}
