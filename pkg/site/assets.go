package site

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Processor transforms one source asset into its output form. Processors are
// kept behind a small closed interface: the registry ships the built-in copy
// processor and callers may register their own (stylesheet compilers,
// bundlers) ahead of it.
type Processor interface {
	// Name identifies the processor in logs.
	Name() string

	// Test reports whether this processor handles the file at relPath.
	Test(relPath string) bool

	// CalculateDestination maps the source relPath to an output path.
	CalculateDestination(relPath string) string

	// Render produces the output bytes for the file.
	Render(f *File) ([]byte, error)
}

// ProcessorRegistry resolves a file to its processor by first match over an
// ordered list. Resolution runs once per file at load time and the result is
// cached on the File.
type ProcessorRegistry struct {
	processors []Processor
}

// NewProcessorRegistry builds a registry from the given processors, in
// match order.
func NewProcessorRegistry(processors ...Processor) *ProcessorRegistry {
	return &ProcessorRegistry{processors: processors}
}

// Register appends a processor at the end of the match order.
func (r *ProcessorRegistry) Register(p Processor) {
	r.processors = append(r.processors, p)
}

// Resolve returns the first processor whose Test matches relPath, or nil
// when no processor claims the file. A file without a processor is not an
// error; it is copied byte-for-byte.
func (r *ProcessorRegistry) Resolve(relPath string) Processor {
	if r == nil {
		return nil
	}
	for _, p := range r.processors {
		if p.Test(relPath) {
			return p
		}
	}
	return nil
}

// CopyProcessor passes matching files through unchanged. Patterns are
// doublestar globs evaluated against the slash-separated relative path.
type CopyProcessor struct {
	Patterns []string
}

func (p *CopyProcessor) Name() string { return "copy" }

func (p *CopyProcessor) Test(relPath string) bool {
	rel := filepath.ToSlash(relPath)
	for _, pattern := range p.Patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (p *CopyProcessor) CalculateDestination(relPath string) string {
	return "/" + filepath.ToSlash(relPath)
}

func (p *CopyProcessor) Render(f *File) ([]byte, error) {
	return f.Raw(), nil
}

var _ Processor = (*CopyProcessor)(nil)
