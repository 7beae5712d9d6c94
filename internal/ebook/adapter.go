// Package ebook extracts raw bibliographic metadata from e-book containers.
//
// Each supported container has an Adapter. Adapters are selected by file
// extension with ForPath and return a format-specific RawMetadata value that
// the normalize package turns into an entities.Book.
//
//	adapter, err := ebook.ForPath("pg98.epub")
//	if err != nil {
//	    return err // ErrUnsupportedFormat
//	}
//	raw, err := adapter.Extract("pg98.epub")
package ebook

import (
	"path/filepath"

	"github.com/mrlokans/roots/internal/entities"
)

// Adapter extracts the raw metadata of a single container format.
// Implementations hold no mutable state and are safe for concurrent use.
type Adapter interface {
	Format() entities.Format
	Extract(path string) (RawMetadata, error)
}

// RawMetadata is the format-specific result of one Extract call.
// The concrete types are *EpubMetadata and *MobiMetadata.
type RawMetadata interface {
	Format() entities.Format
	// Warnings lists non-fatal problems, such as fields dropped for
	// EncodingWarning reasons.
	Warnings() []error
}

var (
	epubAdapter = EpubAdapter{}
	mobiAdapter = MobiAdapter{}
)

// ForPath selects the adapter for path by its extension. The match is
// case-sensitive: "book.EPUB" is not recognised.
func ForPath(path string) (Adapter, error) {
	switch filepath.Ext(path) {
	case ".epub":
		return epubAdapter, nil
	case ".mobi":
		return mobiAdapter, nil
	default:
		return nil, &Error{Path: path, Kind: ErrUnsupportedFormat, Reason: "unrecognised extension " + quoteExt(path)}
	}
}

// Supported reports whether ForPath would accept path.
func Supported(path string) bool {
	_, err := ForPath(path)
	return err == nil
}

func quoteExt(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "(none)"
	}
	return "\"" + ext + "\""
}
