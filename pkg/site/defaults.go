package site

import (
	"maps"
	"reflect"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultRule assigns default data values to files matching a scope. A scope
// may name a path fragment (or doublestar glob), a metadata subset, or both;
// an empty scope matches every file.
type DefaultRule struct {
	Scope  DefaultScope   `mapstructure:"scope"`
	Values map[string]any `mapstructure:"values"`
}

// DefaultScope restricts a DefaultRule to a subset of files.
type DefaultScope struct {
	// Path matches when the file's source path contains it, or, when the
	// value contains glob metacharacters, when the relative path matches it
	// as a doublestar pattern.
	Path string `mapstructure:"path"`

	// Metadata matches when the file's frontmatter contains every listed
	// key/value pair.
	Metadata map[string]any `mapstructure:"metadata"`
}

// matches reports whether the file at relPath with the given frontmatter
// falls inside the scope.
func (s DefaultScope) matches(relPath string, fm map[string]any) bool {
	if s.Path != "" {
		if isGlobPattern(s.Path) {
			ok, err := doublestar.Match(s.Path, relPath)
			if err != nil || !ok {
				return false
			}
		} else if !strings.Contains(relPath, s.Path) {
			return false
		}
	}
	for k, want := range s.Metadata {
		got, ok := fm[k]
		if !ok || !valueEqual(got, want) {
			return false
		}
	}
	return true
}

func isGlobPattern(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// sortRules orders rules from least specific to most specific: pure-metadata
// scopes sort before path scopes, and shorter path scopes before longer
// ones. The sort is stable so rules at equal specificity keep config order.
func sortRules(rules []DefaultRule) []DefaultRule {
	out := make([]DefaultRule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Scope.Path) < len(out[j].Scope.Path)
	})
	return out
}

// resolveDefaults computes the defaulted values for one file. Rules are
// pre-sorted least-specific first; resolution walks them most-specific first
// and never overwrites a value already set by a more specific rule.
//
// The accumulator is a fresh map per call. Sharing one map across files is
// exactly the aliasing bug this function exists to avoid.
func resolveDefaults(rules []DefaultRule, relPath string, fm map[string]any) map[string]any {
	out := map[string]any{}
	for i := len(rules) - 1; i >= 0; i-- {
		r := rules[i]
		if !r.Scope.matches(relPath, fm) {
			continue
		}
		for k, v := range r.Values {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
	return out
}

// resolveData merges defaults, frontmatter, and computed fields into the
// file's data mapping. Later arguments win; nested maps merge recursively.
// The result is a new map: inputs are never mutated.
func resolveData(defaults, fm, computed map[string]any) map[string]any {
	out := map[string]any{}
	for _, layer := range []map[string]any{defaults, fm, computed} {
		deepMergeInto(out, layer)
	}
	return out
}

func deepMergeInto(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		existing, ok := dst[k].(map[string]any)
		if !ok {
			cp := map[string]any{}
			deepMergeInto(cp, sub)
			dst[k] = cp
			continue
		}
		merged := maps.Clone(existing)
		deepMergeInto(merged, sub)
		dst[k] = merged
	}
}

// valueEqual compares two frontmatter-style values, descending into nested
// maps so a metadata scope can match structured frontmatter.
func valueEqual(got, want any) bool {
	wm, wok := want.(map[string]any)
	gm, gok := got.(map[string]any)
	if wok && gok {
		for k, wv := range wm {
			gv, ok := gm[k]
			if !ok || !valueEqual(gv, wv) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(got, want)
}
