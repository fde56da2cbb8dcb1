package site

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInterpolate_Table(t *testing.T) {
	date := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		template string
		ctx      map[string]any
		want     string
		wantErr  bool
		errKey   string
	}{
		{
			name:     "single token",
			template: "/:title/",
			ctx:      map[string]any{"title": "Hello World"},
			want:     "/hello-world/",
		},
		{
			name:     "repeated token substitutes every occurrence",
			template: "/:title/:title/",
			ctx:      map[string]any{"title": "Go"},
			want:     "/go/go/",
		},
		{
			name:     "multiple tokens",
			template: "/:category/:title/",
			ctx:      map[string]any{"category": "Posts", "title": "First"},
			want:     "/posts/first/",
		},
		{
			name:     "date format aliases",
			template: "/:date|YYYY/:date|MM/:title/",
			ctx:      map[string]any{"date": date, "title": "x"},
			want:     "/2024/03/x/",
		},
		{
			name:     "go layout passthrough",
			template: "/:date|2006-01/",
			ctx:      map[string]any{"date": date},
			want:     "/2024-03/",
		},
		{
			name:     "string date value",
			template: "/:date|YYYY/",
			ctx:      map[string]any{"date": "2024-03-09"},
			want:     "/2024/",
		},
		{
			name:     "no tokens",
			template: "/about/",
			ctx:      map[string]any{},
			want:     "/about/",
		},
		{
			name:     "missing key",
			template: "/:title/",
			ctx:      map[string]any{},
			wantErr:  true,
			errKey:   "title",
		},
		{
			name:     "empty string is missing",
			template: "/:title/",
			ctx:      map[string]any{"title": ""},
			wantErr:  true,
			errKey:   "title",
		},
		{
			name:     "zero time is missing",
			template: "/:date|YYYY/",
			ctx:      map[string]any{"date": time.Time{}},
			wantErr:  true,
			errKey:   "date",
		},
		{
			name:     "prefix keys do not collide",
			template: "/:tag/:tags/",
			ctx:      map[string]any{"tag": "a", "tags": "b"},
			want:     "/a/b/",
		},
		{
			name:     "numeric value",
			template: "/page/:page/",
			ctx:      map[string]any{"page": 2},
			want:     "/page/2/",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Interpolate(tc.template, tc.ctx)
			if tc.wantErr {
				require.Error(t, err)
				require.True(t, IsMissingParam(err))
				var mp *MissingParamError
				require.ErrorAs(t, err, &mp)
				require.Equal(t, tc.errKey, mp.Key)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestInterpolate_Deterministic(t *testing.T) {
	ctx := map[string]any{"title": "Some Post", "category": "go"}
	first, err := Interpolate("/:category/:title/", ctx)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		got, err := Interpolate("/:category/:title/", ctx)
		require.NoError(t, err)
		require.Equal(t, first, got)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello World", "hello-world"},
		{"open-source", "open-source"},
		{"Open Source", "open-source"},
		{"  spaced  out  ", "spaced-out"},
		{"C++ & Go!", "c-go"},
		{"UPPER", "upper"},
		{"already-slugged", "already-slugged"},
		{"dots.kept.md", "dots.kept.md"},
		{"---", ""},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Slugify(tc.in), "Slugify(%q)", tc.in)
	}
}

func TestMakeFileSystemSafe(t *testing.T) {
	cases := []struct{ in, want string }{
		{"/", "/index.html"},
		{"", "/index.html"},
		{"/about/", "/about/index.html"},
		{"/about", "/about/index.html"},
		{"about", "/about/index.html"},
		{"/blog/post/", "/blog/post/index.html"},
		{"/style.css", "/style.css"},
		{"/feed.xml", "/feed.xml"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, MakeFileSystemSafe(tc.in), "MakeFileSystemSafe(%q)", tc.in)
	}
}

func TestMakeFileSystemSafe_Idempotent(t *testing.T) {
	for _, in := range []string{"/", "/about/", "/style.css", "/blog/post"} {
		once := MakeFileSystemSafe(in)
		require.Equal(t, once, MakeFileSystemSafe(once))
	}
}

func TestMakePretty(t *testing.T) {
	cases := []struct{ in, want string }{
		{"/index.html", "/"},
		{"/about/index.html", "/about/"},
		{"/style.css", "/style.css"},
		{"/post.html", "/post.html"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, MakePretty(tc.in))
	}
}
