// Package templates holds the HTML templates the results browser renders,
// embedded into the binary the same way the teacher embeds its diff-viewer
// templates.
package templates

import (
	"embed"
	"html/template"
)

var (
	//go:embed *.tmpl
	templateFS embed.FS

	// Templates is parsed once at package init; ExecuteTemplate is safe for
	// concurrent use by multiple request goroutines.
	Templates = template.Must(template.New("").ParseFS(templateFS, "*.tmpl"))
)
