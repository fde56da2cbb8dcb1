package site

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jlrickert/cli-toolkit/toolkit"
	"github.com/spf13/afero"
)

// markdownExtensions are source extensions rewritten to .html when a file's
// destination falls back to its relative path.
var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mkd":      true,
}

// FileOptions carries the per-site collaborators a File needs to compute its
// derived state. The Site builds one FileOptions and shares it across every
// file it owns.
type FileOptions struct {
	// SourceRoot is the absolute content source directory.
	SourceRoot string

	// URLKey names the frontmatter field that overrides destination
	// computation entirely when present.
	URLKey string

	// Defaults are the scoped default rules, pre-sorted least-specific
	// first (see sortRules).
	Defaults []DefaultRule

	// Filters is the configured filter set, or nil.
	Filters *FilterSet

	// Processors resolves non-text assets to their transform.
	Processors *ProcessorRegistry

	// Templates renders page templates and inline content templates.
	Templates TemplateEngine

	// Markdown converts rendered content to HTML.
	Markdown MarkdownEngine
}

// File represents one source file and owns all of its derived state:
// frontmatter, defaulted data, destination path, content fingerprint, and
// rendering. Files are created when a source path is discovered and never
// deleted during a run; Update re-reads them from disk.
type File struct {
	// Path is the absolute source path and the file's unique key.
	Path string

	// Frontmatter is the parsed header block mapping; empty when absent or
	// unparseable.
	Frontmatter map[string]any

	// Data is the merged view of defaults, frontmatter, and computed fields
	// (content, url). Destination is recomputed whenever Data changes.
	Data map[string]any

	// Checksum is the content hash of the raw source bytes.
	Checksum string

	// Destination is the file-system-safe relative output path.
	Destination string

	// URL is the pretty form of Destination, exposed as Data["url"].
	URL string

	// Filtered marks a file excluded by the configured filter set. Filtered
	// files stay in the graph but are skipped at write time.
	Filtered bool

	// SkipProcessing marks a non-text asset: no frontmatter, no templating,
	// no markdown. The file is either transformed by its processor or
	// copied byte-for-byte.
	SkipProcessing bool

	fs        afero.Fs
	opts      FileOptions
	rel       string
	raw       []byte
	processor Processor
}

// NewFile constructs a File for the source at path. Call Update before
// using any derived state.
func NewFile(fs afero.Fs, path string, opts FileOptions) *File {
	return &File{
		Path:        path,
		Frontmatter: map[string]any{},
		Data:        map[string]any{},
		fs:          fs,
		opts:        opts,
	}
}

// Rel returns the file's path relative to the source root, slash-separated.
func (f *File) Rel() string { return f.rel }

// Raw returns the raw source bytes read by the last Update.
func (f *File) Raw() []byte { return f.raw }

// Processor returns the asset processor resolved for this file, or nil.
func (f *File) Processor() Processor { return f.processor }

// Update re-reads the file from disk and recomputes frontmatter, data,
// destination, and checksum. It is safe to call repeatedly; each call fully
// replaces the derived state.
func (f *File) Update(ctx context.Context) error {
	rel, err := filepath.Rel(f.opts.SourceRoot, f.Path)
	if err != nil {
		return fmt.Errorf("relativize %s: %w", f.Path, err)
	}
	f.rel = filepath.ToSlash(rel)

	hasFM, err := HasFrontmatter(f.fs, f.Path)
	if err != nil {
		return fmt.Errorf("probe %s: %w", f.Path, err)
	}

	raw, err := afero.ReadFile(f.fs, f.Path)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.Path, err)
	}
	f.raw = raw
	f.Checksum = toolkit.HasherFromContext(ctx).Hash(raw)

	if !hasFM {
		// Asset path: no templating, no data resolution. The destination is
		// still computed so the file lands in the write set.
		f.SkipProcessing = true
		f.processor = f.opts.Processors.Resolve(f.rel)
		f.Frontmatter = map[string]any{}
		f.Data = map[string]any{}
		f.Filtered = false

		dest := "/" + f.rel
		if f.processor != nil {
			dest = f.processor.CalculateDestination(f.rel)
		}
		f.Destination = MakeFileSystemSafe(dest)
		f.URL = MakePretty(f.Destination)
		return nil
	}

	f.SkipProcessing = false
	f.processor = nil

	fm, body := ParseFrontmatter(raw)
	f.Frontmatter = fm

	defaults := resolveDefaults(f.opts.Defaults, f.rel, fm)
	f.Data = resolveData(defaults, fm, map[string]any{
		"content": string(body),
	})
	f.Filtered = f.opts.Filters.IsFiltered(f.Data)

	dest, err := f.computeDestination()
	if err != nil {
		return fmt.Errorf("%s: %w", f.Path, err)
	}
	f.Destination = MakeFileSystemSafe(dest)
	f.URL = MakePretty(f.Destination)
	f.Data["url"] = f.URL
	return nil
}

// computeDestination picks the output path by priority: the explicit URL
// frontmatter field, then a permalink template resolved against Data, then
// the relative source path with markdown extensions rewritten to .html.
func (f *File) computeDestination() (string, error) {
	if v, ok := f.Frontmatter[f.opts.URLKey].(string); ok && v != "" {
		return v, nil
	}
	if tpl, ok := f.Data["permalink"].(string); ok && tpl != "" {
		return Interpolate(tpl, f.Data)
	}
	rel := f.rel
	if ext := filepath.Ext(rel); markdownExtensions[strings.ToLower(ext)] {
		rel = strings.TrimSuffix(rel, ext) + ".html"
	}
	return "/" + rel, nil
}

// Render produces the file's output bytes. Asset files delegate entirely to
// their processor (or pass through raw). Text files self-template their
// content, run it through markdown unless data disables it, then render the
// page template when one is named. Any failure is wrapped with the file's
// path.
func (f *File) Render(ctx context.Context, global map[string]any) ([]byte, error) {
	if f.SkipProcessing {
		if f.processor != nil {
			out, err := f.processor.Render(f)
			if err != nil {
				return nil, NewRenderError(f.Path, err)
			}
			return out, nil
		}
		return f.raw, nil
	}

	content, _ := f.Data["content"].(string)

	// Self-templating: a post can reference site data from its own body.
	content, err := f.opts.Templates.RenderString(content, renderVars(global, f.Data))
	if err != nil {
		return nil, NewRenderError(f.Path, err)
	}

	if md, ok := f.Data["markdown"].(bool); !ok || md {
		content, err = f.opts.Markdown.Render(content)
		if err != nil {
			return nil, NewRenderError(f.Path, err)
		}
	}

	name, _ := f.Data["template"].(string)
	if name == "" {
		return []byte(content), nil
	}

	fileData := shallowClone(f.Data)
	fileData["content"] = content
	out, err := f.opts.Templates.Render(name, renderVars(global, fileData))
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return nil, NewRenderError(f.Path, NewTemplateNotFoundError(name))
		}
		return nil, NewRenderError(f.Path, err)
	}
	return []byte(out), nil
}

// Write materializes the file under destRoot. Filtered files are skipped
// entirely. Asset files are written unconditionally. Text files are skipped
// when incremental mode is on and the cached fingerprint still matches;
// otherwise the render output is written and the fingerprint cached.
func (f *File) Write(ctx context.Context, dest afero.Fs, destRoot string, cache *Cache, incremental bool, global map[string]any) error {
	if f.Filtered {
		return nil
	}

	outPath := filepath.Join(destRoot, filepath.FromSlash(f.Destination))

	if f.SkipProcessing {
		out, err := f.Render(ctx, global)
		if err != nil {
			return err
		}
		return writeFileAtomic(dest, outPath, out, 0o644)
	}

	if incremental {
		if prev, ok := cache.Get(f.Path); ok && prev == f.Checksum {
			return nil
		}
	}

	out, err := f.Render(ctx, global)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(dest, outPath, out, 0o644); err != nil {
		return err
	}
	cache.Put(f.Path, f.Checksum)
	return nil
}

// renderVars merges the global site data with the current file's data under
// the "file" key, without mutating either input.
func renderVars(global, fileData map[string]any) map[string]any {
	vars := shallowClone(global)
	vars["file"] = fileData
	return vars
}

func shallowClone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
