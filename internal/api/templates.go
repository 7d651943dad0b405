package api

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

// LoadTemplates parses the embedded dashboard templates.
func LoadTemplates() (*template.Template, error) {
	return template.New("base").ParseFS(templatesFS, "templates/*.html")
}
