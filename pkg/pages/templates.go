// Package pages serves the server-rendered HTML pages of the hub.
package pages

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/markdown"
)

// pageNames are the templates rendered inside layout.html.
var pageNames = []string{
	"home", "missions", "mission", "frictions", "friction",
	"use_cases", "leaderboard", "moderate", "login", "error",
}

// Templates holds one parsed template set per page.
type Templates struct {
	sets   map[string]*template.Template
	logger *zap.Logger
}

// ParseTemplates parses layout.html and partials.html together with each page
// template under templates/ in fsys.
func ParseTemplates(fsys fs.FS, renderer *markdown.Renderer, logger *zap.Logger) (*Templates, error) {
	funcs := template.FuncMap{
		"markdown": func(src string) (template.HTML, error) {
			return renderer.Render(src)
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"date": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"join": strings.Join,
		"inc":  func(i int) int { return i + 1 },
	}

	t := &Templates{sets: make(map[string]*template.Template, len(pageNames)), logger: logger}
	for _, name := range pageNames {
		set, err := template.New(name).Funcs(funcs).ParseFS(fsys,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		t.sets[name] = set
	}
	return t, nil
}

// Render executes page into a buffer first so template errors never produce a
// half-written response.
func (t *Templates) Render(w http.ResponseWriter, status int, page string, data *View) {
	set, ok := t.sets[page]
	if !ok {
		t.logger.Error("Unknown page template", zap.String("page", page))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, "layout", data); err != nil {
		t.logger.Error("Failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
