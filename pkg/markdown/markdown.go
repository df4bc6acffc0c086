// Package markdown renders user-authored Markdown to sanitized HTML.
package markdown

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts Markdown to HTML safe to embed in pages.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer returns a renderer supporting GitHub-flavored tables, strikethrough
// and autolinks. Raw HTML in the source is dropped by the sanitizer.
func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: policy,
	}
}

// Render returns sanitized HTML for src.
func (r *Renderer) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	// #nosec G203 -- output is sanitized by bluemonday
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// MustRender renders src and falls back to escaped text on error. Used from templates.
func (r *Renderer) MustRender(src string) template.HTML {
	out, err := r.Render(src)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return out
}
