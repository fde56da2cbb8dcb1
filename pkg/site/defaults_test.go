package site

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveDefaults_Specificity(t *testing.T) {
	rules := sortRules([]DefaultRule{
		{
			Scope:  DefaultScope{Path: "_posts/2024"},
			Values: map[string]any{"layout": "archive"},
		},
		{
			Scope:  DefaultScope{},
			Values: map[string]any{"layout": "default", "author": "site"},
		},
		{
			Scope:  DefaultScope{Path: "_posts"},
			Values: map[string]any{"layout": "post", "draft": false},
		},
	})

	cases := []struct {
		name string
		rel  string
		want map[string]any
	}{
		{
			name: "global only",
			rel:  "about.md",
			want: map[string]any{"layout": "default", "author": "site"},
		},
		{
			name: "longer path wins",
			rel:  "_posts/2024/hello.md",
			want: map[string]any{"layout": "archive", "author": "site", "draft": false},
		},
		{
			name: "mid scope",
			rel:  "_posts/hello.md",
			want: map[string]any{"layout": "post", "author": "site", "draft": false},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveDefaults(rules, tc.rel, map[string]any{})
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResolveDefaults_MetadataScope(t *testing.T) {
	rules := sortRules([]DefaultRule{
		{
			Scope:  DefaultScope{Metadata: map[string]any{"type": "review"}},
			Values: map[string]any{"template": "review"},
		},
	})

	got := resolveDefaults(rules, "posts/a.md", map[string]any{"type": "review"})
	require.Equal(t, map[string]any{"template": "review"}, got)

	got = resolveDefaults(rules, "posts/a.md", map[string]any{"type": "tutorial"})
	require.Empty(t, got)
}

func TestResolveDefaults_GlobScope(t *testing.T) {
	rules := []DefaultRule{
		{
			Scope:  DefaultScope{Path: "**/*.md"},
			Values: map[string]any{"markdown": true},
		},
	}
	require.Equal(t, map[string]any{"markdown": true},
		resolveDefaults(rules, "deep/nested/file.md", map[string]any{}))
	require.Empty(t, resolveDefaults(rules, "style.css", map[string]any{}))
}

// Each file must get its own defaults map; a shared accumulator would leak
// one file's values into the next.
func TestResolveDefaults_NoAliasing(t *testing.T) {
	rules := []DefaultRule{
		{Scope: DefaultScope{}, Values: map[string]any{"layout": "default"}},
	}
	a := resolveDefaults(rules, "a.md", map[string]any{})
	b := resolveDefaults(rules, "b.md", map[string]any{})
	a["layout"] = "mutated"
	require.Equal(t, "default", b["layout"])

	c := resolveDefaults(rules, "c.md", map[string]any{})
	require.Equal(t, "default", c["layout"])
}

func TestResolveData_LayeringAndMerge(t *testing.T) {
	defaults := map[string]any{
		"layout": "default",
		"nav":    map[string]any{"show": true, "depth": 1},
	}
	fm := map[string]any{
		"title": "Hi",
		"nav":   map[string]any{"depth": 2},
	}
	computed := map[string]any{"content": "body"}

	got := resolveData(defaults, fm, computed)
	require.Equal(t, "default", got["layout"])
	require.Equal(t, "Hi", got["title"])
	require.Equal(t, "body", got["content"])
	require.Equal(t, map[string]any{"show": true, "depth": 2}, got["nav"])

	// Inputs stay untouched.
	require.Equal(t, map[string]any{"show": true, "depth": 1}, defaults["nav"])
	require.Equal(t, map[string]any{"depth": 2}, fm["nav"])
}

func TestSortRules_StableAtEqualSpecificity(t *testing.T) {
	rules := sortRules([]DefaultRule{
		{Scope: DefaultScope{Path: "aa"}, Values: map[string]any{"v": 1}},
		{Scope: DefaultScope{Path: "bb"}, Values: map[string]any{"v": 2}},
	})
	require.Equal(t, "aa", rules[0].Scope.Path)
	require.Equal(t, "bb", rules[1].Scope.Path)
}
