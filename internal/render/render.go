// Package render turns a template id, a locale and a data value into page
// content for public site dispatch.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed templates/*.html
var embedded embed.FS

// ErrTemplateNotFound is returned when no variant of a template exists.
var ErrTemplateNotFound = errors.New("template not found")

// Renderer renders a named template for a locale.
type Renderer interface {
	Render(templateID, locale string, data any) (string, error)
}

// Templates is an html/template backed Renderer. Files are named
// <id>.html for the default variant and <id>.<locale>.html per locale.
type Templates struct {
	set      *template.Template
	fallback string
	matcher  language.Matcher
	locales  []string
}

// New parses every *.html file at the root of fsys.
func New(fsys fs.FS, fallbackLocale string) (*Templates, error) {
	set, err := template.ParseFS(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	fallback := strings.ToLower(fallbackLocale)
	if fallback == "" {
		fallback = "en"
	}

	t := &Templates{set: set, fallback: fallback}
	t.locales = t.discoverLocales()

	tags := []language.Tag{language.Make(fallback)}
	for _, l := range t.locales {
		if l != fallback {
			tags = append(tags, language.Make(l))
		}
	}
	t.matcher = language.NewMatcher(tags)
	return t, nil
}

// Default returns the templates embedded in the binary.
func Default(fallbackLocale string) (*Templates, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return New(sub, fallbackLocale)
}

// Render executes the most specific variant: <id>.<locale>.html, then
// <id>.<fallback>.html, then <id>.html.
func (t *Templates) Render(templateID, locale string, data any) (string, error) {
	for _, name := range t.candidates(templateID, strings.ToLower(locale)) {
		tpl := t.set.Lookup(name)
		if tpl == nil {
			continue
		}
		var buf bytes.Buffer
		if err := tpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("render %s: %w", name, err)
		}
		return buf.String(), nil
	}
	return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
}

func (t *Templates) candidates(id, locale string) []string {
	names := make([]string, 0, 3)
	if locale != "" {
		names = append(names, id+"."+locale+".html")
	}
	if locale != t.fallback {
		names = append(names, id+"."+t.fallback+".html")
	}
	return append(names, id+".html")
}

// Negotiate picks the best available locale for an Accept-Language header.
func (t *Templates) Negotiate(acceptLanguage string) string {
	if acceptLanguage == "" {
		return t.fallback
	}
	tag, _ := language.MatchStrings(t.matcher, acceptLanguage)
	base, _ := tag.Base()
	return base.String()
}

// Locales lists the locales that have at least one dedicated template.
func (t *Templates) Locales() []string {
	return append([]string(nil), t.locales...)
}

func (t *Templates) discoverLocales() []string {
	seen := make(map[string]bool)
	for _, tpl := range t.set.Templates() {
		name := strings.TrimSuffix(tpl.Name(), path.Ext(tpl.Name()))
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			seen[name[i+1:]] = true
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
