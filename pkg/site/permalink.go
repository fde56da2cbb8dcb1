package site

import (
	"path"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Permalink interpolation. A permalink template is a plain string containing
// tokens of the form ":key" or ":key|FORMAT". Each token is replaced by the
// slugified value of key looked up in the interpolation context. Tokens with
// a FORMAT suffix treat the value as a date and format it before slugifying.
//
// Interpolation is pure: no I/O, fully deterministic given template and
// context.

var permalinkTokenRE = regexp.MustCompile(`:([a-zA-Z_][a-zA-Z0-9_]*)(\|[a-zA-Z0-9_\-]+)?`)

// dateAliases maps common permalink date tokens to Go reference layouts.
// Anything not listed here is passed through as a Go layout verbatim.
var dateAliases = map[string]string{
	"YYYY": "2006",
	"YY":   "06",
	"MM":   "01",
	"M":    "1",
	"DD":   "02",
	"D":    "2",
}

// Interpolate replaces every token in template with the slugified value of
// the token's key in ctx. The same key may appear more than once; every
// occurrence is substituted. A key that is absent or falsy in ctx yields a
// MissingParamError naming the key.
func Interpolate(template string, ctx map[string]any) (string, error) {
	var firstErr error
	out := permalinkTokenRE.ReplaceAllStringFunc(template, func(token string) string {
		m := permalinkTokenRE.FindStringSubmatch(token)
		key := m[1]
		val, ok := ctx[key]
		if !ok || isFalsy(val) {
			if firstErr == nil {
				firstErr = NewMissingParamError(template, key)
			}
			return token
		}

		var rendered string
		if m[2] != "" {
			format := strings.TrimPrefix(m[2], "|")
			t, err := toTime(val)
			if err != nil {
				if firstErr == nil {
					firstErr = NewRenderError(template, err)
				}
				return token
			}
			if layout, ok := dateAliases[format]; ok {
				format = layout
			}
			rendered = t.Format(format)
		} else {
			rendered = cast.ToString(val)
		}
		return Slugify(rendered)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

var (
	slugInvalidRE  = regexp.MustCompile(`[^a-z0-9\-_.]+`)
	slugCollapseRE = regexp.MustCompile(`-{2,}`)
)

// Slugify lowercases s, replaces every run of URL-unsafe characters with a
// single "-", and trims leading/trailing separators. "Open Source" and
// "open-source" slugify to the same value, which keeps metadata groups from
// colliding on disk.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalidRE.ReplaceAllString(s, "-")
	s = slugCollapseRE.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// MakeFileSystemSafe coerces url into a path that can be written to disk. A
// url that already names a file (has an extension) is returned unchanged;
// anything else is treated as a directory and gets an index.html appended,
// normalizing to a single leading and trailing slash first.
func MakeFileSystemSafe(url string) string {
	if path.Ext(url) != "" {
		return url
	}
	url = "/" + strings.Trim(url, "/")
	if url == "/" {
		return "/index.html"
	}
	return url + "/index.html"
}

// MakePretty strips a trailing "/index.html" back to "/". It is used only
// for the user-facing url field, never for the on-disk path.
func MakePretty(url string) string {
	if strings.HasSuffix(url, "/index.html") {
		return strings.TrimSuffix(url, "index.html")
	}
	return url
}

// isFalsy reports whether v counts as an absent value for permalink
// interpolation: nil, empty string, false, numeric zero, zero time, or an
// empty slice/map.
func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case time.Time:
		return t.IsZero()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// toTime converts a frontmatter date value to a time.Time. Values may be
// real times (yaml decodes ISO dates natively) or strings in one of the
// common date layouts.
func toTime(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	return cast.ToTimeE(v)
}
