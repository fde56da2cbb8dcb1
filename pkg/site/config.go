package site

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the conventional site config filename.
const DefaultConfigFile = "stanza.yaml"

// defaultPageSize is used when a collection does not configure pageSize.
const defaultPageSize = 6

// Config is the read-only accessor over the parsed site configuration.
// Values are addressed by dotted path ("path.source", "file.defaults");
// requesting a path that is entirely undefined with no default is a
// ConfigError, which in this system is a programmer/config mistake and
// aborts the build.
type Config struct {
	raw  map[string]any
	root string
}

// LoadConfig reads and parses the YAML config file at path. The project
// root is the directory containing the file.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, NewConfigError("", fmt.Sprintf("parse %s: %v", path, err))
	}
	if m == nil {
		m = map[string]any{}
	}
	return NewConfig(m, filepath.Dir(path)), nil
}

// NewConfig wraps an already-parsed config mapping rooted at root.
func NewConfig(raw map[string]any, root string) *Config {
	if raw == nil {
		raw = map[string]any{}
	}
	return &Config{raw: raw, root: root}
}

// Root returns the project root directory.
func (c *Config) Root() string { return c.root }

// Get resolves a dotted path into the config mapping. It fails with a
// ConfigError when any segment is undefined.
func (c *Config) Get(key string) (any, error) {
	cur := any(c.raw)
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, NewConfigError(key, "not defined")
		}
		cur, ok = m[part]
		if !ok {
			return nil, NewConfigError(key, "not defined")
		}
	}
	return cur, nil
}

// GetDefault is Get with a fallback instead of an error.
func (c *Config) GetDefault(key string, def any) any {
	v, err := c.Get(key)
	if err != nil {
		return def
	}
	return v
}

// GetString resolves key as a string, failing when undefined.
func (c *Config) GetString(key string) (string, error) {
	v, err := c.Get(key)
	if err != nil {
		return "", err
	}
	return cast.ToStringE(v)
}

// GetStringDefault resolves key as a string with a fallback.
func (c *Config) GetStringDefault(key, def string) string {
	return cast.ToString(c.GetDefault(key, def))
}

// GetBoolDefault resolves key as a bool with a fallback.
func (c *Config) GetBoolDefault(key string, def bool) bool {
	return cast.ToBool(c.GetDefault(key, def))
}

// SourcePath returns the absolute content source directory.
func (c *Config) SourcePath() string {
	return c.resolve(c.GetStringDefault("path.source", "."))
}

// DestinationPath returns the absolute output directory.
func (c *Config) DestinationPath() string {
	return c.resolve(c.GetStringDefault("path.destination", "_site"))
}

// TemplatesPath returns the absolute templates directory.
func (c *Config) TemplatesPath() string {
	return c.resolve(c.GetStringDefault("path.templates", "_templates"))
}

// CacheDir returns the directory holding fingerprint cache files.
func (c *Config) CacheDir() string {
	return c.resolve(c.GetStringDefault("path.cache", ".stanza-cache"))
}

// Incremental reports whether unchanged outputs should be skipped on repeat
// runs.
func (c *Config) Incremental() bool {
	return c.GetBoolDefault("incremental", false)
}

// SetIncremental overrides the configured incremental setting. The CLI uses
// it for the --incremental flag.
func (c *Config) SetIncremental(on bool) {
	c.raw["incremental"] = on
}

// URLKey names the frontmatter field that, when present, overrides every
// other way of computing a file's destination.
func (c *Config) URLKey() string {
	return c.GetStringDefault("file.urlKey", "url")
}

// DateFormat is the layout used to parse string dates in sort keys.
func (c *Config) DateFormat() string {
	return c.GetStringDefault("file.dateFormat", "2006-01-02")
}

// FileDefaults decodes the file.defaults rule list, pre-sorted from least
// specific to most specific.
func (c *Config) FileDefaults() ([]DefaultRule, error) {
	raw := c.GetDefault("file.defaults", nil)
	if raw == nil {
		return nil, nil
	}
	var rules []DefaultRule
	if err := decodeStrict(raw, &rules); err != nil {
		return nil, NewConfigError("file.defaults", err.Error())
	}
	return sortRules(rules), nil
}

// Filters decodes the file.filters section.
func (c *Config) Filters() (*FilterSet, error) {
	raw := c.GetDefault("file.filters", nil)
	if raw == nil {
		return nil, nil
	}
	var fs FilterSet
	if err := decodeStrict(raw, &fs); err != nil {
		return nil, NewConfigError("file.filters", err.Error())
	}
	return &fs, nil
}

// CollectionConfig is the static configuration of one collection entry.
type CollectionConfig struct {
	Name       string        `mapstructure:"-"`
	Path       string        `mapstructure:"path"`
	Metadata   string        `mapstructure:"metadata"`
	Sort       SortSpec      `mapstructure:"sort"`
	PageSize   int           `mapstructure:"pageSize"`
	Permalinks PermalinkPair `mapstructure:"permalinks"`
	Template   string        `mapstructure:"template"`
}

// SortSpec orders a collection's files by a data key.
type SortSpec struct {
	Key   string `mapstructure:"key"`
	Order string `mapstructure:"order"`
}

// Descending reports whether the sorted order should be reversed.
func (s SortSpec) Descending() bool { return s.Order == "descending" }

// PermalinkPair holds a collection's listing permalinks: Index for the
// first page, Page for every later one.
type PermalinkPair struct {
	Index string `mapstructure:"index"`
	Page  string `mapstructure:"page"`
}

// paginationConfigured reports whether both listing permalinks exist; pages
// are only built when they do.
func (p PermalinkPair) paginationConfigured() bool {
	return p.Index != "" && p.Page != ""
}

// Collections decodes and validates every configured collection entry,
// ordered by name for determinism. Invalid entries (missing name, both or
// neither membership rule, non-numeric page size) abort the build here,
// before any I/O happens.
func (c *Config) Collections() ([]CollectionConfig, error) {
	raw := c.GetDefault("collections", nil)
	if raw == nil {
		return nil, nil
	}
	entries, ok := raw.(map[string]any)
	if !ok {
		return nil, NewConfigError("collections", "expected a mapping of name to collection")
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]CollectionConfig, 0, len(names))
	for _, name := range names {
		if name == "" {
			return nil, NewConfigError("collections", "collection name must not be empty")
		}
		var cc CollectionConfig
		if err := decodeStrict(entries[name], &cc); err != nil {
			return nil, NewConfigError("collections."+name, err.Error())
		}
		cc.Name = name
		if (cc.Path == "") == (cc.Metadata == "") {
			return nil, NewConfigError("collections."+name,
				"exactly one of path or metadata must be set")
		}
		if cc.PageSize < 0 {
			return nil, NewConfigError("collections."+name, "pageSize must not be negative")
		}
		if cc.PageSize == 0 {
			cc.PageSize = defaultPageSize
		}
		out = append(out, cc)
	}
	return out, nil
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.root, p)
}

// decodeStrict decodes a generic config value into a typed struct without
// weak type coercion, so e.g. a string pageSize fails loudly instead of
// silently becoming zero.
func decodeStrict(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		TagName:    "mapstructure",
		ErrorUnset: false,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
