package ebook

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/mrlokans/roots/internal/entities"
)

const (
	epubFormat    = "epub"
	containerPath = "META-INF/container.xml"

	// Caps on the XML documents read from the archive.
	maxContainerSize = 1 << 16
	maxPackageSize   = 8 << 20
)

// EpubMetadata is the Dublin Core dictionary of an EPUB package document.
// Keys are lower-case element names without namespace ("title", "creator");
// values keep document order.
type EpubMetadata struct {
	Entries  map[string][]string
	warnings []error
}

func (*EpubMetadata) Format() entities.Format { return entities.FormatEpub }

func (m *EpubMetadata) Warnings() []error { return m.warnings }

// First returns the first value stored under key, or "" when absent.
func (m *EpubMetadata) First(key string) string {
	if values := m.Entries[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Values returns every value stored under key.
func (m *EpubMetadata) Values(key string) []string {
	return m.Entries[key]
}

// EpubAdapter reads the OPF metadata of zip-based EPUB containers.
type EpubAdapter struct{}

func (EpubAdapter) Format() entities.Format { return entities.FormatEpub }

type epubContainer struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	XMLName  xml.Name `xml:"package"`
	Metadata *struct {
		Elements []opfElement `xml:",any"`
	} `xml:"metadata"`
}

type opfElement struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// Extract opens the archive at path and returns its metadata dictionary.
func (EpubAdapter) Extract(filePath string) (RawMetadata, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, err
		}
		return nil, corrupt(filePath, epubFormat, "not a zip archive", err)
	}
	defer zr.Close()

	containerData, err := readZipEntry(&zr.Reader, containerPath, maxContainerSize)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, missingHeader(filePath, epubFormat, containerPath+" not found")
		}
		return nil, corrupt(filePath, epubFormat, "read "+containerPath, err)
	}

	var container epubContainer
	if err := xml.Unmarshal(containerData, &container); err != nil {
		return nil, corrupt(filePath, epubFormat, "parse "+containerPath, err)
	}

	rootfile := ""
	for _, rf := range container.Rootfiles {
		if rf.FullPath != "" {
			rootfile = rf.FullPath
			break
		}
	}
	if rootfile == "" {
		return nil, missingHeader(filePath, epubFormat, "container lists no rootfile")
	}

	packageData, err := readZipEntry(&zr.Reader, path.Clean(rootfile), maxPackageSize)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, missingHeader(filePath, epubFormat, "package document "+rootfile+" not found")
		}
		return nil, corrupt(filePath, epubFormat, "read "+rootfile, err)
	}

	var pkg opfPackage
	if err := xml.Unmarshal(packageData, &pkg); err != nil {
		return nil, corrupt(filePath, epubFormat, "parse "+rootfile, err)
	}
	if pkg.Metadata == nil {
		return nil, missingHeader(filePath, epubFormat, "package document has no metadata section")
	}

	meta := &EpubMetadata{Entries: make(map[string][]string)}
	for _, el := range pkg.Metadata.Elements {
		key := strings.ToLower(el.XMLName.Local)
		// EPUB 3 refinements and EPUB 2 <meta name=...> pairs carry no
		// Dublin Core value of their own.
		if key == "meta" || key == "link" {
			continue
		}
		value := strings.TrimSpace(el.Value)
		if value == "" {
			continue
		}
		meta.Entries[key] = append(meta.Entries[key], value)
	}

	return meta, nil
}

func readZipEntry(zr *zip.Reader, name string, limit int64) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", name, limit)
	}
	return data, nil
}
