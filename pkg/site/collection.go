package site

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// MembershipRule decides which files belong to a collection. It is a closed
// tagged union: a collection is either path-based or metadata-based, never
// both (enforced when the config is decoded).
type MembershipRule interface {
	isMembershipRule()
}

// PathRule selects files under a source subtree, excluding files that fall
// inside any other collection's subtree.
type PathRule struct {
	// Path is the collection's subtree, relative to the source root.
	Path string

	// Excludes holds the other collections' paths, recomputed from the full
	// collection set before every populate.
	Excludes []string
}

func (PathRule) isMembershipRule() {}

// MetadataRule selects files whose frontmatter contains Key. Presence is
// the only criterion: null, empty string, and empty list values all count;
// only a missing key excludes.
type MetadataRule struct {
	Key string
}

func (MetadataRule) isMembershipRule() {}

// Collection groups files and produces paginated listing pages. One
// Collection exists per configured entry; it is repopulated from the full
// file set every update cycle.
type Collection struct {
	Name string

	// Rule is the membership rule; its concrete type decides population.
	Rule MembershipRule

	// Files are the sorted members. For metadata collections this is the
	// union of all groups.
	Files []*File

	// Groups maps a slugified metadata value to its sorted members. Nil for
	// path collections. The slugified form is canonical; the raw value is
	// kept as a display alias on page data.
	Groups map[string][]*File

	// Pages are the listing pages, rebuilt by every Populate.
	Pages []*Page

	cfg        CollectionConfig
	dateFormat string
	templates  TemplateEngine
}

// NewCollection builds a collection from its validated config entry.
func NewCollection(cfg CollectionConfig, dateFormat string, templates TemplateEngine) (*Collection, error) {
	if (cfg.Path == "") == (cfg.Metadata == "") {
		return nil, NewConfigError("collections."+cfg.Name,
			"exactly one of path or metadata must be set")
	}
	c := &Collection{
		Name:       cfg.Name,
		cfg:        cfg,
		dateFormat: dateFormat,
		templates:  templates,
	}
	if cfg.Path != "" {
		c.Rule = PathRule{Path: strings.Trim(cfg.Path, "/")}
	} else {
		c.Rule = MetadataRule{Key: cfg.Metadata}
	}
	return c, nil
}

// Path returns the collection's subtree for path collections, or "" for
// metadata collections.
func (c *Collection) Path() string {
	if r, ok := c.Rule.(PathRule); ok {
		return r.Path
	}
	return ""
}

// SetExcludes installs the exclusion paths computed from the full
// collection set. It must be called before Populate; the Site computes all
// collections' static paths first, then populates (populating earlier would
// race against paths not yet final).
func (c *Collection) SetExcludes(paths []string) {
	r, ok := c.Rule.(PathRule)
	if !ok {
		return
	}
	excludes := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.Trim(p, "/")
		if p == "" || p == r.Path {
			continue
		}
		// An ancestor collection's path contains this collection's whole
		// subtree; excluding it would empty the collection.
		if pathWithin(p, r.Path) {
			continue
		}
		excludes = append(excludes, p)
	}
	r.Excludes = excludes
	c.Rule = r
}

// Populate recomputes membership, sorting, grouping, and pagination from
// the given file set. Chunking and page linking run only after every member
// is known; pagination cannot be streamed.
func (c *Collection) Populate(files []*File) error {
	c.Files = nil
	c.Groups = nil
	c.Pages = nil

	switch rule := c.Rule.(type) {
	case PathRule:
		return c.populatePath(rule, files)
	case MetadataRule:
		return c.populateMetadata(rule, files)
	default:
		return fmt.Errorf("collection %s: unknown membership rule %T", c.Name, c.Rule)
	}
}

func (c *Collection) populatePath(rule PathRule, files []*File) error {
	var members []*File
	for _, f := range files {
		if f.Filtered || f.SkipProcessing {
			continue
		}
		if !pathWithin(rule.Path, f.Rel()) {
			continue
		}
		excluded := false
		for _, ex := range rule.Excludes {
			if pathWithin(ex, f.Rel()) {
				excluded = true
				break
			}
		}
		if !excluded {
			members = append(members, f)
		}
	}

	sortFiles(members, c.cfg.Sort, c.dateFormat)
	c.Files = members

	if !c.cfg.Permalinks.paginationConfigured() || len(members) == 0 {
		return nil
	}

	chunks := chunkFiles(members, c.cfg.PageSize)
	for i, chunk := range chunks {
		page := c.createPage(i, "", nil, chunk, len(members), len(chunks))
		c.Pages = append(c.Pages, page)
	}
	if err := c.linkPages(
		func(prev, cur *Page) bool { return true },
		func(cur, next *Page) bool { return true },
	); err != nil {
		return err
	}
	return c.finalizePages()
}

func (c *Collection) populateMetadata(rule MetadataRule, files []*File) error {
	groups := map[string][]*File{}
	rawValues := map[string]any{}
	var members []*File

	for _, f := range files {
		if f.Filtered || f.SkipProcessing {
			continue
		}
		raw, ok := f.Frontmatter[rule.Key]
		if !ok {
			continue
		}
		members = append(members, f)

		for _, v := range asList(raw) {
			key := Slugify(cast.ToString(v))
			if key == "" {
				// Present-but-empty values count for membership but have no
				// grouping identity, so they produce no listing page.
				continue
			}
			groups[key] = append(groups[key], f)
			if _, seen := rawValues[key]; !seen {
				rawValues[key] = v
			}
		}
	}

	sortFiles(members, c.cfg.Sort, c.dateFormat)
	c.Files = members
	c.Groups = groups

	if !c.cfg.Permalinks.paginationConfigured() || len(groups) == 0 {
		return nil
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		group := groups[key]
		sortFiles(group, c.cfg.Sort, c.dateFormat)
		chunks := chunkFiles(group, c.cfg.PageSize)
		for i, chunk := range chunks {
			page := c.createPage(i, key, rawValues[key], chunk, len(group), len(chunks))
			c.Pages = append(c.Pages, page)
		}
	}

	// Pages sit in one flat slice in creation order; linkage is scoped so
	// pages of different metadata values are never cross-linked.
	sameGroup := func(a, b *Page) bool { return a.group == b.group }
	if err := c.linkPages(sameGroup, sameGroup); err != nil {
		return err
	}
	return c.finalizePages()
}

// createPage builds one listing page. index is 0-based within the page's
// pagination context; the first page gets the index permalink, later pages
// the page permalink.
func (c *Collection) createPage(index int, group string, rawValue any, files []*File, total, totalPages int) *Page {
	id := fmt.Sprintf("%s:%d", c.Name, index)
	if group != "" {
		id = fmt.Sprintf("%s:%s:%d", c.Name, group, index)
	}

	permalink := c.cfg.Permalinks.Page
	if index == 0 {
		permalink = c.cfg.Permalinks.Index
	}

	fileData := make([]map[string]any, 0, len(files))
	for _, f := range files {
		fileData = append(fileData, f.Data)
	}

	data := map[string]any{
		"page":        index + 1,
		"per_page":    c.cfg.PageSize,
		"total":       total,
		"total_pages": totalPages,
		"files":       fileData,
	}
	if group != "" {
		data["metadata"] = group
		data["metadata_raw"] = rawValue
	}

	return &Page{
		ID:        id,
		Index:     index,
		Files:     files,
		Data:      data,
		Permalink: permalink,
		Template:  c.cfg.Template,
		group:     group,
		templates: c.templates,
	}
}

// linkPages walks the pages in order and conditionally assigns prev/next
// cross-references. The predicates let the metadata variant restrict
// linkage to pages sharing a group.
func (c *Collection) linkPages(shouldLinkPrev, shouldLinkNext func(a, b *Page) bool) error {
	for i, p := range c.Pages {
		if i > 0 && shouldLinkPrev(c.Pages[i-1], p) {
			prev := c.Pages[i-1]
			p.Data["prev"] = prev.Data["page"]
			p.Data["prev_link"] = pageLink(prev)
		}
		if i < len(c.Pages)-1 && shouldLinkNext(p, c.Pages[i+1]) {
			next := c.Pages[i+1]
			p.Data["next"] = next.Data["page"]
			p.Data["next_link"] = pageLink(next)
		}
	}
	return nil
}

// finalizePages computes each page's destination after linkage so link
// fields participate in the page fingerprint.
func (c *Collection) finalizePages() error {
	for _, p := range c.Pages {
		if err := p.computeDestination(); err != nil {
			return err
		}
	}
	return nil
}

// pageLink derives a page's pretty url from its permalink without requiring
// destinations to be computed yet.
func pageLink(p *Page) string {
	dest, err := Interpolate(p.Permalink, p.Data)
	if err != nil {
		return ""
	}
	return MakePretty(MakeFileSystemSafe(dest))
}

// sortFiles stably sorts files in place by the sort key. When the first
// file's value parses as a date (native time or the configured layout), the
// sort compares timestamps; otherwise it compares string forms. Descending
// order inverts the comparator, so equal keys keep their relative order in
// either direction.
func sortFiles(files []*File, spec SortSpec, dateFormat string) {
	if spec.Key == "" || len(files) == 0 {
		return
	}

	byDate := false
	if v, ok := files[0].Data[spec.Key]; ok {
		if _, err := parseSortDate(v, dateFormat); err == nil {
			byDate = true
		}
	}
	desc := spec.Descending()

	sort.SliceStable(files, func(i, j int) bool {
		vi, vj := files[i].Data[spec.Key], files[j].Data[spec.Key]
		if byDate {
			ti, erri := parseSortDate(vi, dateFormat)
			tj, errj := parseSortDate(vj, dateFormat)
			// Unparseable dates sort last in either direction.
			if erri != nil || errj != nil {
				return errj != nil && erri == nil
			}
			if desc {
				return tj.Before(ti)
			}
			return ti.Before(tj)
		}
		si, sj := cast.ToString(vi), cast.ToString(vj)
		if desc {
			return sj < si
		}
		return si < sj
	})
}

func parseSortDate(v any, dateFormat string) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return time.Time{}, err
	}
	if dateFormat != "" {
		if t, err := time.Parse(dateFormat, s); err == nil {
			return t, nil
		}
	}
	return cast.StringToDate(s)
}

// chunkFiles splits files into fixed-size windows. A size of zero or less
// yields a single chunk.
func chunkFiles(files []*File, size int) [][]*File {
	if size <= 0 {
		return [][]*File{files}
	}
	var out [][]*File
	for start := 0; start < len(files); start += size {
		end := min(start+size, len(files))
		out = append(out, files[start:end])
	}
	return out
}

// pathWithin reports whether rel equals base or lies beneath it.
func pathWithin(base, rel string) bool {
	if base == "" {
		return true
	}
	return rel == base || strings.HasPrefix(rel, base+"/")
}

// asList normalizes a metadata value to a list: an existing list is
// returned as-is, anything else becomes a singleton.
func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}
