package ebook

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for files whose extension matches no adapter.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptFile is returned when a container cannot be opened or parsed at all.
	ErrCorruptFile = errors.New("corrupt file")

	// ErrMissingHeader is returned when a container is structurally valid but
	// lacks its mandatory metadata section.
	ErrMissingHeader = errors.New("missing header")

	// ErrEncoding marks a single field whose bytes are not valid text. It is
	// only ever reported as a warning; the field is dropped.
	ErrEncoding = errors.New("invalid text encoding")
)

// Error describes an extraction failure for one file.
type Error struct {
	Path   string
	Format string
	Kind   error // one of the sentinels above
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Path, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error against its kind sentinel.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func corrupt(path, format, reason string, err error) error {
	return &Error{Path: path, Format: format, Kind: ErrCorruptFile, Reason: reason, Err: err}
}

func missingHeader(path, format, reason string) error {
	return &Error{Path: path, Format: format, Kind: ErrMissingHeader, Reason: reason}
}

// EncodingWarning records a field that was dropped because its bytes were
// not valid text.
type EncodingWarning struct {
	Field string
}

func (w EncodingWarning) Error() string {
	return fmt.Sprintf("%s: %v", w.Field, ErrEncoding)
}

func (w EncodingWarning) Unwrap() error { return ErrEncoding }
