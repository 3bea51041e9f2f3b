package web

import (
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.tmpl
var files embed.FS

// Funcs are the helpers available to every page
var Funcs = template.FuncMap{
	"price": func(v float64) string {
		return fmt.Sprintf("$%.2f", v)
	},
	"datetime": func(t time.Time) string {
		return t.UTC().Format("Jan 2, 2006 15:04 UTC")
	},
	"datetimeLocal": func(t time.Time) string {
		return t.UTC().Format("2006-01-02T15:04")
	},
}

// Templates parses the embedded page set
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(files, "templates/*.tmpl")
}

// MustTemplates is Templates for program start-up and tests
func MustTemplates() *template.Template {
	return template.Must(Templates())
}
