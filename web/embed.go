// Package web holds the templates and static assets served by the budget page.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

// TemplatesFS embeds HTML templates for server-side rendering.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets (css/js).
//
//go:embed static/*
var StaticFS embed.FS

// Templates parses every embedded template with the given helper functions.
func Templates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(TemplatesFS, "templates/*.html")
}

// Static exposes the embedded assets rooted at static/.
func Static() http.FileSystem {
	sub, err := fs.Sub(StaticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
