package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

// Views renders the embedded HTML templates.
type Views struct {
	templates *template.Template
}

// LoadViews parses the embedded templates.
func LoadViews() (*Views, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Views{templates: templates}, nil
}

// Render executes the named template and writes it with the given status.
// Nothing is written if execution fails.
func (v *Views) Render(w http.ResponseWriter, status int, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := v.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// LoginPage is the data for login.html
type LoginPage struct {
	Username string
	Error    string
}

// DashboardPage is the data for conductor.html
type DashboardPage struct {
	Bus     string
	Message string
	Error   string
}
