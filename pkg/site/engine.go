package site

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// TemplateEngine renders named page templates and inline template strings.
// Implementations must surface a missing named template as a
// TemplateNotFoundError so the build can re-raise it with the offending file
// attached instead of a raw engine error.
type TemplateEngine interface {
	Render(name string, vars map[string]any) (string, error)
	RenderString(src string, vars map[string]any) (string, error)
}

// MarkdownEngine converts markdown text to HTML. Implementations are pure
// functions of their configured options.
type MarkdownEngine interface {
	Render(src string) (string, error)
}

// GoldmarkEngine is the built-in MarkdownEngine backed by goldmark with GFM
// tables/strikethrough/autolinks and auto heading IDs.
type GoldmarkEngine struct {
	md goldmark.Markdown
}

// NewGoldmarkEngine constructs the default markdown engine.
func NewGoldmarkEngine() *GoldmarkEngine {
	return &GoldmarkEngine{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				gmhtml.WithUnsafe(),
			),
		),
	}
}

func (e *GoldmarkEngine) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// HTMLTemplateEngine implements TemplateEngine on html/template. Named
// templates are loaded once from a templates directory; inline strings are
// parsed per call with the same function map so content can self-template.
type HTMLTemplateEngine struct {
	templates *template.Template
}

// NewHTMLTemplateEngine walks dir on fs and parses every .html file into one
// template set, named by its path relative to dir. A missing directory
// yields an engine with no named templates, which is fine for sites that
// only self-template their content.
func NewHTMLTemplateEngine(fs afero.Fs, dir string) (*HTMLTemplateEngine, error) {
	root := template.New("")

	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("stat templates dir: %w", err)
	}
	if !exists {
		return &HTMLTemplateEngine{templates: root}, nil
	}

	err = afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".html") {
			return nil
		}
		raw, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if _, err := root.New(name).Parse(string(raw)); err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load templates from %s: %w", dir, err)
	}
	return &HTMLTemplateEngine{templates: root}, nil
}

func (e *HTMLTemplateEngine) Render(name string, vars map[string]any) (string, error) {
	t := e.templates.Lookup(name)
	if t == nil {
		// Template names are commonly configured without the extension.
		t = e.templates.Lookup(name + ".html")
	}
	if t == nil {
		return "", NewTemplateNotFoundError(name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (e *HTMLTemplateEngine) RenderString(src string, vars map[string]any) (string, error) {
	t, err := template.New("inline").Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse inline template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("execute inline template: %w", err)
	}
	return buf.String(), nil
}

var (
	_ TemplateEngine = (*HTMLTemplateEngine)(nil)
	_ MarkdownEngine = (*GoldmarkEngine)(nil)
)
