package site

import (
	"context"
	"testing"

	"github.com/jlrickert/cli-toolkit/toolkit"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/jlrickert/stanza/pkg/log"
)

// testCtx returns a context carrying the test hasher and a logger that
// records into the returned handler.
func testCtx(t *testing.T) (context.Context, *log.TestHandler) {
	t.Helper()
	lg, handler := log.NewTestLogger(t, log.ParseLevel("debug"))
	ctx := context.Background()
	ctx = toolkit.WithHasher(ctx, &toolkit.MD5Hasher{})
	ctx = log.ContextWithLogger(ctx, lg)
	return ctx, handler
}

// testHasher returns the hasher tests share with testCtx.
func testHasher() toolkit.Hasher {
	return &toolkit.MD5Hasher{}
}

// writeTestFile creates path (and parents) on fs with the given content.
func writeTestFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

// testFileOptions builds a minimal FileOptions for files rooted at root.
func testFileOptions(t *testing.T, root string) FileOptions {
	t.Helper()
	tmpl, err := NewHTMLTemplateEngine(afero.NewMemMapFs(), "/nope")
	require.NoError(t, err)
	return FileOptions{
		SourceRoot: root,
		URLKey:     "url",
		Processors: NewProcessorRegistry(),
		Templates:  tmpl,
		Markdown:   NewGoldmarkEngine(),
	}
}

// updateTestFile constructs and updates a File in one step.
func updateTestFile(t *testing.T, fs afero.Fs, path string, opts FileOptions) *File {
	t.Helper()
	ctx, _ := testCtx(t)
	f := NewFile(fs, path, opts)
	require.NoError(t, f.Update(ctx))
	return f
}
