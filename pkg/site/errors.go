package site

import (
	"errors"
	"fmt"
	"os"
)

// Sentinel errors used for simple equality-style checks.
var (
	ErrInvalid  = os.ErrInvalid  // invalid argument
	ErrNotExist = os.ErrNotExist // file does not exist

	// ErrTemplateNotFound signals that a named listing or page template is not
	// known to the template engine. Engines should return a typed
	// TemplateNotFoundError that unwraps to this sentinel so the build can
	// re-raise it with the offending file attached.
	ErrTemplateNotFound = errors.New("template not found")
)

// MissingParamError reports a permalink token whose key is absent (or falsy)
// in the interpolation context. It is fatal for the item being built: a
// destination cannot be derived without the value.
type MissingParamError struct {
	Key      string
	Template string
}

func (e *MissingParamError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("permalink %q: no value for :%s", e.Template, e.Key)
	}
	return fmt.Sprintf("permalink: no value for :%s", e.Key)
}

func (e *MissingParamError) Is(target error) bool { return target == ErrInvalid }

func (e *MissingParamError) Unwrap() error { return ErrInvalid }

// NewMissingParamError constructs a MissingParamError for the given token key.
func NewMissingParamError(template, key string) error {
	return &MissingParamError{Key: key, Template: template}
}

// IsMissingParam reports whether err is (or wraps) a MissingParamError.
func IsMissingParam(err error) bool {
	if err == nil {
		return false
	}
	var mp *MissingParamError
	return errors.As(err, &mp)
}

// ConfigError represents a validation or parse failure in the site
// configuration. Config errors are raised at construction time and abort the
// whole build before any I/O happens.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("invalid site config %q: %s", e.Key, e.Msg)
	}
	return fmt.Sprintf("invalid site config: %s", e.Msg)
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalid }

func (e *ConfigError) Unwrap() error { return ErrInvalid }

// NewConfigError creates a ConfigError scoped to a dotted config key.
func NewConfigError(key, msg string) error {
	return &ConfigError{Key: key, Msg: msg}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConfigError
	return errors.As(err, &ce)
}

// TemplateNotFoundError carries the name of the missing template so the
// message shown to the user names the template instead of dumping an engine
// stack trace.
type TemplateNotFoundError struct {
	Name string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template not found: %q", e.Name)
}

func (e *TemplateNotFoundError) Is(target error) bool { return target == ErrTemplateNotFound }

func (e *TemplateNotFoundError) Unwrap() error { return ErrTemplateNotFound }

// NewTemplateNotFoundError constructs a typed TemplateNotFoundError.
func NewTemplateNotFoundError(name string) error {
	return &TemplateNotFoundError{Name: name}
}

// RenderError wraps a per-item failure (template render, markdown convert,
// asset processing) with the offending source path so the user can fix their
// content without reading a stack trace.
type RenderError struct {
	Path  string
	Cause error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Path, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// NewRenderError wraps cause with the source path of the failing item.
func NewRenderError(path string, cause error) error {
	return &RenderError{Path: path, Cause: cause}
}

// DuplicateDestinationError reports two sources that resolved to the same
// output path. A silent overwrite would produce a site whose content depends
// on write ordering, so this is fatal.
type DuplicateDestinationError struct {
	Destination string
	First       string
	Second      string
}

func (e *DuplicateDestinationError) Error() string {
	return fmt.Sprintf("destination %q claimed by both %s and %s",
		e.Destination, e.First, e.Second)
}

func (e *DuplicateDestinationError) Is(target error) bool { return target == ErrInvalid }

func (e *DuplicateDestinationError) Unwrap() error { return ErrInvalid }
