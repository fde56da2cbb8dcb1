package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jlrickert/cli-toolkit/toolkit"
	"github.com/spf13/afero"

	"github.com/jlrickert/stanza/pkg/internal"
	"github.com/jlrickert/stanza/pkg/log"
)

// Renderable is one entry of the destination map: a content file or a
// collection listing page. The dev server resolves a requested URL to a
// Renderable and renders it on demand; Build writes all of them.
type Renderable interface {
	Render(ctx context.Context, global map[string]any) ([]byte, error)
	Write(ctx context.Context, dest afero.Fs, destRoot string, cache *Cache, incremental bool, global map[string]any) error
}

// Hook runs at a lifecycle point of the build. Hooks run in registration
// order; the first error aborts the build.
type Hook func(ctx context.Context, s *Site) error

// Option customizes a Site at construction.
type Option func(*Site)

// WithLogger sets the site logger.
func WithLogger(lg *slog.Logger) Option {
	return func(s *Site) { s.logger = lg }
}

// WithClock sets the clock used by time-dependent filters.
func WithClock(clk internal.Clock) Option {
	return func(s *Site) { s.clock = clk }
}

// WithHasher sets the hasher used for fingerprints and the cache namespace.
func WithHasher(h toolkit.Hasher) Option {
	return func(s *Site) { s.hasher = h }
}

// WithProcessors prepends asset processors ahead of the built-in copy
// processor in the first-match order.
func WithProcessors(ps ...Processor) Option {
	return func(s *Site) { s.extraProcessors = ps }
}

// WithTemplateEngine replaces the built-in html/template engine.
func WithTemplateEngine(e TemplateEngine) Option {
	return func(s *Site) { s.templates = e }
}

// WithMarkdownEngine replaces the built-in goldmark engine.
func WithMarkdownEngine(e MarkdownEngine) Option {
	return func(s *Site) { s.markdown = e }
}

// Site owns the full item set, the collection set, and the destination map,
// and drives the update→build lifecycle. Update rebuilds the in-memory
// graph from disk; Build materializes it to the destination directory.
type Site struct {
	cfg    *Config
	fs     afero.Fs
	logger *slog.Logger
	clock  internal.Clock
	hasher toolkit.Hasher

	templates       TemplateEngine
	markdown        MarkdownEngine
	registry        *ProcessorRegistry
	extraProcessors []Processor

	fileOpts FileOptions
	cache    *Cache

	files        map[string]*File
	collections  []*Collection
	destinations map[string]Renderable

	preBuild  []Hook
	postBuild []Hook

	mu sync.Mutex
}

// NewSite constructs a Site from its config. All structural validation
// (collection entries, default rules, filters) happens here, before any
// content I/O: a config mistake aborts immediately.
func NewSite(fs afero.Fs, cfg *Config, opts ...Option) (*Site, error) {
	s := &Site{
		cfg:          cfg,
		fs:           fs,
		logger:       log.NewNopLogger(),
		clock:        internal.RealClock{},
		hasher:       &toolkit.MD5Hasher{},
		files:        map[string]*File{},
		destinations: map[string]Renderable{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.templates == nil {
		tmpl, err := NewHTMLTemplateEngine(fs, cfg.TemplatesPath())
		if err != nil {
			return nil, err
		}
		s.templates = tmpl
	}
	if s.markdown == nil {
		s.markdown = NewGoldmarkEngine()
	}

	processors := append([]Processor{}, s.extraProcessors...)
	s.registry = NewProcessorRegistry(processors...)

	defaults, err := cfg.FileDefaults()
	if err != nil {
		return nil, err
	}
	filters, err := cfg.Filters()
	if err != nil {
		return nil, err
	}
	if filters != nil {
		filters.Clock = s.clock
	}

	// Validate collection config eagerly even though collections are
	// rebuilt every update cycle.
	if _, err := cfg.Collections(); err != nil {
		return nil, err
	}

	s.fileOpts = FileOptions{
		SourceRoot: cfg.SourcePath(),
		URLKey:     cfg.URLKey(),
		Defaults:   defaults,
		Filters:    filters,
		Processors: s.registry,
		Templates:  s.templates,
		Markdown:   s.markdown,
	}

	s.cache = NewCache(fs, cfg.CacheDir(), cfg.Root(), s.hasher, s.logger)
	return s, nil
}

// Config returns the site configuration.
func (s *Site) Config() *Config { return s.cfg }

// Cache returns the fingerprint cache owned by this site.
func (s *Site) Cache() *Cache { return s.cache }

// OnPreBuild registers a hook run before any write is issued.
func (s *Site) OnPreBuild(h Hook) { s.preBuild = append(s.preBuild, h) }

// OnPostBuild registers a hook run after all writes complete.
func (s *Site) OnPostBuild(h Hook) { s.postBuild = append(s.postBuild, h) }

// prepareContext installs the site's hasher and logger on ctx so components
// deeper in the build resolve the same instances.
func (s *Site) prepareContext(ctx context.Context) context.Context {
	ctx = toolkit.WithHasher(ctx, s.hasher)
	return log.ContextWithLogger(ctx, s.logger)
}

// Update rebuilds the in-memory item and collection graph from disk. It is
// idempotent and safe to call repeatedly; the dev server calls it on every
// request in watch mode.
func (s *Site) Update(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx = s.prepareContext(ctx)

	paths, err := s.discover()
	if err != nil {
		return fmt.Errorf("discover source files: %w", err)
	}

	// Reuse existing File objects so watch mode keeps identity; drop the
	// ones whose source vanished.
	next := make(map[string]*File, len(paths))
	var errs []error
	for _, p := range paths {
		f, ok := s.files[p]
		if !ok {
			f = NewFile(s.fs, p, s.fileOpts)
		}
		if err := f.Update(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		next[p] = f
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.files = next

	ordered := s.orderedFiles()

	if err := s.populateCollections(ordered); err != nil {
		return err
	}
	return s.mergeDestinations(ordered)
}

// populateCollections rebuilds every collection from config and fills it
// from the current file set. All collections' static paths are computed
// before any populate runs: exclusion-path computation reads other
// collections' paths and must see them finalized.
func (s *Site) populateCollections(files []*File) error {
	configs, err := s.cfg.Collections()
	if err != nil {
		return err
	}

	collections := make([]*Collection, 0, len(configs))
	for _, cc := range configs {
		col, err := NewCollection(cc, s.cfg.DateFormat(), s.templates)
		if err != nil {
			return err
		}
		collections = append(collections, col)
	}

	allPaths := make([]string, 0, len(collections))
	for _, col := range collections {
		if p := col.Path(); p != "" {
			allPaths = append(allPaths, p)
		}
	}

	// Barrier: paths above are final, populate below may fan out.
	for _, col := range collections {
		col.SetExcludes(allPaths)
		if err := col.Populate(files); err != nil {
			return err
		}
	}
	s.collections = collections
	return nil
}

// mergeDestinations folds every file and collection page into one
// destination map. Two sources claiming the same output path is fatal: a
// silent overwrite would make site content depend on write ordering.
func (s *Site) mergeDestinations(files []*File) error {
	dest := make(map[string]Renderable, len(files))
	claimed := map[string]string{}

	claim := func(d, id string, r Renderable) error {
		if first, ok := claimed[d]; ok {
			return &DuplicateDestinationError{Destination: d, First: first, Second: id}
		}
		claimed[d] = id
		dest[d] = r
		return nil
	}

	for _, f := range files {
		if f.Filtered {
			continue
		}
		if err := claim(f.Destination, f.Path, f); err != nil {
			return err
		}
	}
	for _, col := range s.collections {
		for _, p := range col.Pages {
			if err := claim(p.Destination, p.ID, p); err != nil {
				return err
			}
		}
	}
	s.destinations = dest
	return nil
}

// Build materializes the current in-memory graph to the destination
// directory, honoring incremental skip. Item writes fan out concurrently
// and failures are reported collectively; the cache is flushed exactly once
// on every exit path.
func (s *Site) Build(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx = s.prepareContext(ctx)

	incremental := s.cfg.Incremental()
	if incremental {
		if err := s.cache.Load(); err != nil {
			return err
		}
	}
	defer func() {
		if saveErr := s.cache.Save(); saveErr != nil && err == nil {
			err = saveErr
		}
	}()

	for _, h := range s.preBuild {
		if err := h(ctx, s); err != nil {
			return fmt.Errorf("pre-build hook: %w", err)
		}
	}

	destRoot := s.cfg.DestinationPath()
	if err := s.fs.MkdirAll(destRoot, 0o755); err != nil {
		return fmt.Errorf("create destination %s: %w", destRoot, err)
	}

	global := s.globalData()

	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		written int
		errs    []error
	)
	for _, r := range s.destinations {
		wg.Add(1)
		go func(r Renderable) {
			defer wg.Done()
			if werr := r.Write(ctx, s.fs, destRoot, s.cache, incremental, global); werr != nil {
				errMu.Lock()
				errs = append(errs, werr)
				errMu.Unlock()
				return
			}
			errMu.Lock()
			written++
			errMu.Unlock()
		}(r)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("build failed for %d of %d outputs: %w",
			len(errs), len(s.destinations), errors.Join(errs...))
	}

	s.logger.Info("build complete", "outputs", written, "incremental", incremental)

	for _, h := range s.postBuild {
		if err := h(ctx, s); err != nil {
			return fmt.Errorf("post-build hook: %w", err)
		}
	}
	return nil
}

// Clean removes the destination directory and empties the fingerprint
// cache so the next build rewrites everything.
func (s *Site) Clean(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.RemoveAll(s.cfg.DestinationPath()); err != nil {
		return fmt.Errorf("remove destination: %w", err)
	}
	s.cache.Clear()
	return s.cache.Save()
}

// Resolve looks a request URL up in the destination map, trying the
// file-system-safe form as well so "/about/" finds "/about/index.html".
func (s *Site) Resolve(url string) (Renderable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.destinations[url]; ok {
		return r, true
	}
	r, ok := s.destinations[MakeFileSystemSafe(url)]
	return r, ok
}

// Destinations returns a copy of the destination map keyed by output path.
func (s *Site) Destinations() map[string]Renderable {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Renderable, len(s.destinations))
	for k, v := range s.destinations {
		out[k] = v
	}
	return out
}

// Collections returns the collection set from the last Update.
func (s *Site) Collections() []*Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Collection(nil), s.collections...)
}

// Files returns the files from the last Update, ordered by path.
func (s *Site) Files() []*File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderedFiles()
}

// RenderPath resolves a request URL and renders the target while holding
// the site lock, so a concurrent Update cannot mutate the graph mid-render.
// The bool reports whether the URL resolved to anything.
func (s *Site) RenderPath(ctx context.Context, url string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx = s.prepareContext(ctx)

	target, ok := s.destinations[url]
	if !ok {
		target, ok = s.destinations[MakeFileSystemSafe(url)]
	}
	if !ok {
		return nil, false, nil
	}
	out, err := target.Render(ctx, s.globalData())
	return out, true, err
}

// GlobalData assembles the template-facing site data: the raw config under
// "site" and each collection's member data under "collections".
func (s *Site) GlobalData() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globalData()
}

func (s *Site) globalData() map[string]any {
	collections := map[string]any{}
	for _, col := range s.collections {
		fileData := make([]map[string]any, 0, len(col.Files))
		for _, f := range col.Files {
			fileData = append(fileData, f.Data)
		}
		entry := map[string]any{"files": fileData}
		if col.Groups != nil {
			groups := map[string]any{}
			for key, members := range col.Groups {
				groupData := make([]map[string]any, 0, len(members))
				for _, f := range members {
					groupData = append(groupData, f.Data)
				}
				groups[key] = groupData
			}
			entry["groups"] = groups
		}
		collections[col.Name] = entry
	}
	return map[string]any{
		"site":        s.cfg.raw,
		"collections": collections,
	}
}

// discover walks the source tree and returns every content path, ordered
// for determinism. The destination, cache, and templates directories and
// the config file itself are never content.
func (s *Site) discover() ([]string, error) {
	src := s.cfg.SourcePath()
	skipDirs := []string{
		s.cfg.DestinationPath(),
		s.cfg.CacheDir(),
		s.cfg.TemplatesPath(),
	}

	var paths []string
	err := afero.Walk(s.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			for _, skip := range skipDirs {
				if path == skip {
					return filepath.SkipDir
				}
			}
			if strings.HasPrefix(info.Name(), ".") && path != src {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") || info.Name() == DefaultConfigFile {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Site) orderedFiles() []*File {
	out := make([]*File, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
