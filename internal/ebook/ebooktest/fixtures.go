// Package ebooktest builds minimal EPUB and MOBI containers for tests.
package ebooktest

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Epub describes the package document of a generated EPUB.
type Epub struct {
	Titles      []string
	Creators    []string
	Publisher   string
	Dates       []string
	Description string
	Subjects    []string
	Identifier  string

	// RootfilePath defaults to OEBPS/content.opf.
	RootfilePath string
	NoContainer  bool
	NoMetadata   bool
	NoRootfile   bool
}

// BuildEpub returns the bytes of a zip container for e.
func BuildEpub(tb testing.TB, e Epub) []byte {
	tb.Helper()

	rootfile := e.RootfilePath
	if rootfile == "" {
		rootfile = "OEBPS/content.opf"
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add := func(name, content string) {
		w, err := zw.Create(name)
		require.NoError(tb, err)
		_, err = w.Write([]byte(content))
		require.NoError(tb, err)
	}

	add("mimetype", "application/epub+zip")
	if !e.NoContainer {
		rootfiles := `<rootfile full-path="` + rootfile + `" media-type="application/oebps-package+xml"/>`
		if e.NoRootfile {
			rootfiles = ""
		}
		add("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>`+rootfiles+`</rootfiles>
</container>`)
	}
	add(rootfile, e.opf())
	require.NoError(tb, zw.Close())
	return buf.Bytes()
}

// WriteEpub writes the fixture to dir/name and returns its path.
func WriteEpub(tb testing.TB, dir, name string, e Epub) string {
	tb.Helper()
	return write(tb, dir, name, BuildEpub(tb, e))
}

func (e Epub) opf() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="id">
`)
	if !e.NoMetadata {
		b.WriteString(`<metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
`)
		el := func(name, value string) {
			b.WriteString("<dc:" + name + ">")
			_ = xml.EscapeText(&b, []byte(value))
			b.WriteString("</dc:" + name + ">\n")
		}
		for _, t := range e.Titles {
			el("title", t)
		}
		for _, c := range e.Creators {
			el("creator", c)
		}
		if e.Publisher != "" {
			el("publisher", e.Publisher)
		}
		for _, d := range e.Dates {
			el("date", d)
		}
		if e.Description != "" {
			el("description", e.Description)
		}
		for _, s := range e.Subjects {
			el("subject", s)
		}
		if e.Identifier != "" {
			el("identifier", e.Identifier)
		}
		b.WriteString(`<meta property="dcterms:modified">2020-01-01T00:00:00Z</meta>
</metadata>
`)
	}
	b.WriteString(`<manifest/><spine/>
</package>
`)
	return b.String()
}

// EXTH record types understood by the MOBI reader.
const (
	EXTHAuthor       = 100
	EXTHPublisher    = 101
	EXTHImprint      = 102
	EXTHDescription  = 103
	EXTHISBN         = 104
	EXTHSubject      = 105
	EXTHPublishDate  = 106
	EXTHASIN         = 113
	EXTHUpdatedTitle = 503
)

// Text encodings declared in the MOBI header.
const (
	CP1252 = 1252
	UTF8   = 65001
)

// EXTHRecord is one raw EXTH entry.
type EXTHRecord struct {
	Type uint32
	Data []byte
}

// Mobi describes a generated MOBI container with a single record.
type Mobi struct {
	PalmName string
	FullName []byte
	// Encoding defaults to UTF8.
	Encoding uint32
	EXTH     []EXTHRecord

	// PalmType overrides the "BOOKMOBI" type/creator pair.
	PalmType     string
	NoMOBIHeader bool
	NoRecords    bool
}

// Record returns an EXTH record holding s.
func Record(kind uint32, s string) EXTHRecord {
	return EXTHRecord{Type: kind, Data: []byte(s)}
}

const mobiHeaderLen = 0xE8

// BuildMobi returns the bytes of a PalmDB file for m.
func BuildMobi(m Mobi) []byte {
	be := binary.BigEndian

	header := make([]byte, 78)
	copy(header[0:31], m.PalmName)
	palmType := m.PalmType
	if palmType == "" {
		palmType = "BOOKMOBI"
	}
	copy(header[60:68], palmType)
	if m.NoRecords {
		return header
	}
	be.PutUint16(header[76:], 1)

	const rec0Offset = 78 + 8 + 2
	recordList := make([]byte, 10)
	be.PutUint32(recordList[0:], rec0Offset)

	var exth []byte
	if len(m.EXTH) > 0 {
		var body []byte
		for _, r := range m.EXTH {
			entry := make([]byte, 8, 8+len(r.Data))
			be.PutUint32(entry[0:], r.Type)
			be.PutUint32(entry[4:], uint32(8+len(r.Data)))
			body = append(body, append(entry, r.Data...)...)
		}
		exth = make([]byte, 12)
		copy(exth, "EXTH")
		be.PutUint32(exth[4:], uint32(12+len(body)))
		be.PutUint32(exth[8:], uint32(len(m.EXTH)))
		exth = append(exth, body...)
		for len(exth)%4 != 0 {
			exth = append(exth, 0)
		}
	}

	encoding := m.Encoding
	if encoding == 0 {
		encoding = UTF8
	}

	mobi := make([]byte, mobiHeaderLen)
	if !m.NoMOBIHeader {
		copy(mobi, "MOBI")
	}
	be.PutUint32(mobi[4:], mobiHeaderLen)
	be.PutUint32(mobi[8:], 2)
	be.PutUint32(mobi[12:], encoding)
	fullNameOffset := 16 + mobiHeaderLen + len(exth)
	be.PutUint32(mobi[0x44:], uint32(fullNameOffset))
	be.PutUint32(mobi[0x48:], uint32(len(m.FullName)))
	if exth != nil {
		be.PutUint32(mobi[0x70:], 0x40)
	}

	rec0 := make([]byte, 16)
	rec0 = append(rec0, mobi...)
	rec0 = append(rec0, exth...)
	rec0 = append(rec0, m.FullName...)
	rec0 = append(rec0, 0, 0)

	out := append(header, recordList...)
	return append(out, rec0...)
}

// WriteMobi writes the fixture to dir/name and returns its path.
func WriteMobi(tb testing.TB, dir, name string, m Mobi) string {
	tb.Helper()
	return write(tb, dir, name, BuildMobi(m))
}

func write(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tb, os.WriteFile(path, data, 0o644))
	return path
}
