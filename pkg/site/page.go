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

// Page is one page of a paginated collection listing. Pages are created
// fresh by their owning Collection every update cycle and are never mutated
// from outside the Collection and the Site.
type Page struct {
	// ID is "<collection>:<index>", or "<collection>:<group>:<index>" for
	// metadata collections. It keys the page's fingerprint cache entry.
	ID string

	// Index is the 0-based position within the page's pagination context
	// (the whole collection, or one metadata group).
	Index int

	// Files holds the members of this page only, in sorted order.
	Files []*File

	// Data is the template-facing page data: page, per_page, total,
	// total_pages, prev/prev_link, next/next_link, url, files.
	Data map[string]any

	// Permalink is the template the destination is derived from.
	Permalink string

	// Template names the listing template rendered for this page.
	Template string

	// Destination is the file-system-safe relative output path.
	Destination string

	// URL is the pretty form of Destination.
	URL string

	group     string
	templates TemplateEngine
}

// computeDestination interpolates the page's permalink against its data and
// forces the result file-system safe. Data["url"] is set to the pretty form.
func (p *Page) computeDestination() error {
	dest, err := Interpolate(p.Permalink, p.Data)
	if err != nil {
		return fmt.Errorf("page %s: %w", p.ID, err)
	}
	p.Destination = MakeFileSystemSafe(dest)
	p.URL = MakePretty(p.Destination)
	p.Data["url"] = p.URL
	return nil
}

// Fingerprint derives the page's content hash from its member set: each
// member's path and checksum, plus the page linkage. A page is rewritten
// when any member changes, a member is added or removed, or its neighbors
// move.
func (p *Page) Fingerprint(hasher toolkit.Hasher) string {
	var b strings.Builder
	b.WriteString(p.Destination)
	fmt.Fprintf(&b, "|prev=%v|next=%v", p.Data["prev_link"], p.Data["next_link"])
	for _, f := range p.Files {
		b.WriteString("|")
		b.WriteString(f.Path)
		b.WriteString("=")
		b.WriteString(f.Checksum)
	}
	return hasher.Hash([]byte(b.String()))
}

// Render renders the page's listing template with the global site data and
// the page data under "page".
func (p *Page) Render(ctx context.Context, global map[string]any) ([]byte, error) {
	vars := shallowClone(global)
	vars["page"] = p.Data
	out, err := p.templates.Render(p.Template, vars)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return nil, NewRenderError(p.ID, NewTemplateNotFoundError(p.Template))
		}
		return nil, NewRenderError(p.ID, err)
	}
	return []byte(out), nil
}

// Write materializes the page under destRoot, honoring the incremental skip
// against the page's file-set fingerprint.
func (p *Page) Write(ctx context.Context, dest afero.Fs, destRoot string, cache *Cache, incremental bool, global map[string]any) error {
	fingerprint := p.Fingerprint(toolkit.HasherFromContext(ctx))

	if incremental {
		if prev, ok := cache.Get(p.ID); ok && prev == fingerprint {
			return nil
		}
	}

	out, err := p.Render(ctx, global)
	if err != nil {
		return err
	}
	outPath := filepath.Join(destRoot, filepath.FromSlash(p.Destination))
	if err := writeFileAtomic(dest, outPath, out, 0o644); err != nil {
		return err
	}
	cache.Put(p.ID, fingerprint)
	return nil
}
