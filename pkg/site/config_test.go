package site

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func loadConfigString(t *testing.T, content string) *Config {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeTestFile(t, fs, "/proj/stanza.yaml", content)
	cfg, err := LoadConfig(fs, "/proj/stanza.yaml")
	require.NoError(t, err)
	return cfg
}

func TestConfigGet_DottedPath(t *testing.T) {
	cfg := loadConfigString(t, "path:\n  source: content\nsite:\n  title: My Site\n")

	v, err := cfg.Get("site.title")
	require.NoError(t, err)
	require.Equal(t, "My Site", v)

	_, err = cfg.Get("site.missing")
	require.Error(t, err)
	require.True(t, IsConfigError(err))

	_, err = cfg.Get("site.title.deeper")
	require.Error(t, err)
}

func TestConfigPaths_ResolvedAgainstRoot(t *testing.T) {
	cfg := loadConfigString(t, "path:\n  source: content\n  destination: out\n")

	require.Equal(t, "/proj", cfg.Root())
	require.Equal(t, "/proj/content", cfg.SourcePath())
	require.Equal(t, "/proj/out", cfg.DestinationPath())
	require.Equal(t, "/proj/_templates", cfg.TemplatesPath())
	require.Equal(t, "/proj/.stanza-cache", cfg.CacheDir())
}

func TestConfigDefaults(t *testing.T) {
	cfg := loadConfigString(t, "")

	require.Equal(t, "/proj", cfg.SourcePath())
	require.Equal(t, "/proj/_site", cfg.DestinationPath())
	require.False(t, cfg.Incremental())
	require.Equal(t, "url", cfg.URLKey())
	require.Equal(t, "2006-01-02", cfg.DateFormat())

	rules, err := cfg.FileDefaults()
	require.NoError(t, err)
	require.Nil(t, rules)

	filters, err := cfg.Filters()
	require.NoError(t, err)
	require.Nil(t, filters)

	cols, err := cfg.Collections()
	require.NoError(t, err)
	require.Nil(t, cols)
}

func TestConfigCollections_Valid(t *testing.T) {
	cfg := loadConfigString(t, `
collections:
  posts:
    path: _posts
    pageSize: 3
    sort:
      key: date
      order: descending
  tags:
    metadata: tags
`)
	cols, err := cfg.Collections()
	require.NoError(t, err)
	require.Len(t, cols, 2)

	// Deterministic name order.
	require.Equal(t, "posts", cols[0].Name)
	require.Equal(t, "tags", cols[1].Name)

	require.Equal(t, 3, cols[0].PageSize)
	require.True(t, cols[0].Sort.Descending())
	require.Equal(t, defaultPageSize, cols[1].PageSize)
}

func TestConfigCollections_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "neither rule",
			yaml: "collections:\n  bad:\n    pageSize: 1\n",
		},
		{
			name: "both rules",
			yaml: "collections:\n  bad:\n    path: p\n    metadata: m\n",
		},
		{
			name: "negative page size",
			yaml: "collections:\n  bad:\n    path: p\n    pageSize: -1\n",
		},
		{
			name: "page size wrong type",
			yaml: "collections:\n  bad:\n    path: p\n    pageSize: lots\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := loadConfigString(t, tc.yaml)
			_, err := cfg.Collections()
			require.Error(t, err)
			require.True(t, IsConfigError(err))
		})
	}
}

func TestConfigFilters_Decoded(t *testing.T) {
	cfg := loadConfigString(t, `
file:
  filters:
    metadata:
      draft: true
    futureDate:
      key: publishAt
`)
	filters, err := cfg.Filters()
	require.NoError(t, err)
	require.NotNil(t, filters)
	require.Equal(t, map[string]any{"draft": true}, filters.Metadata)
	require.NotNil(t, filters.FutureDate)
	require.Equal(t, "publishAt", filters.FutureDate.Key)
}

func TestConfigFileDefaults_SortedBySpecificity(t *testing.T) {
	cfg := loadConfigString(t, `
file:
  defaults:
    - scope:
        path: _posts/deep
      values:
        layout: deep
    - scope: {}
      values:
        layout: base
    - scope:
        path: _posts
      values:
        layout: post
`)
	rules, err := cfg.FileDefaults()
	require.NoError(t, err)
	require.Len(t, rules, 3)
	require.Equal(t, "", rules[0].Scope.Path)
	require.Equal(t, "_posts", rules[1].Scope.Path)
	require.Equal(t, "_posts/deep", rules[2].Scope.Path)
}

func TestLoadConfig_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := LoadConfig(fs, "/missing.yaml")
	require.Error(t, err)

	writeTestFile(t, fs, "/bad.yaml", "{ unclosed: [")
	_, err = LoadConfig(fs, "/bad.yaml")
	require.Error(t, err)
	require.True(t, IsConfigError(err))
}
