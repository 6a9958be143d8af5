package report

import (
	_ "embed"
	"fmt"
	"io"
	"text/template"
)

//go:embed report.md.tmpl
var markdownTemplate string

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"show": display,
}).Parse(markdownTemplate))

// RenderMarkdown writes the Markdown case report for c.
func RenderMarkdown(w io.Writer, c *Context) error {
	if err := tmpl.Execute(w, c); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
