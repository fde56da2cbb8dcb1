package site

import (
	"bytes"
	"io"

	"github.com/adrg/frontmatter"
	"github.com/spf13/afero"
)

// frontmatterDelim is the opening byte sequence of a YAML frontmatter block.
var frontmatterDelim = []byte("---")

// HasFrontmatter probes the first few bytes of the file at path for a
// frontmatter delimiter. Only a small prefix is read, never the whole file;
// assets can be megabytes and the probe runs once per source file per update.
func HasFrontmatter(fs afero.Fs, path string) (bool, error) {
	f, err := fs.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, len(frontmatterDelim)+1)
	n, err := io.ReadFull(f, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	buf = buf[:n]
	if !bytes.HasPrefix(buf, frontmatterDelim) {
		return false, nil
	}
	// "---" must be a line on its own; "----" or "---foo" is content.
	c := buf[len(frontmatterDelim)]
	return c == '\n' || c == '\r', nil
}

// ParseFrontmatter splits raw into a parsed frontmatter mapping and the
// remaining body. A parse failure is deliberately non-fatal: the file still
// flows through the build with empty frontmatter and its full content intact.
func ParseFrontmatter(raw []byte) (map[string]any, []byte) {
	var fm map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(raw), &fm)
	if err != nil {
		return map[string]any{}, raw
	}
	if fm == nil {
		fm = map[string]any{}
	}
	return fm, body
}
