package ebook

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/mrlokans/roots/internal/entities"
)

const (
	mobiFormat = "mobi"

	palmHeaderSize = 78
	palmRecordSize = 8
	palmDocSize    = 16

	// Offsets inside the MOBI header, relative to its "MOBI" magic.
	mobiHeaderLengthOff = 4
	mobiEncodingOff     = 12
	mobiFullNameOff     = 0x44
	mobiFullNameLenOff  = 0x48
	mobiEXTHFlagsOff    = 0x70
	mobiEXTHFlag        = 0x40

	encodingCP1252 = 1252
	encodingUTF8   = 65001
)

// EXTH record types read by the adapter.
const (
	exthAuthor       = 100
	exthPublisher    = 101
	exthImprint      = 102
	exthDescription  = 103
	exthISBN         = 104
	exthSubject      = 105
	exthPublishDate  = 106
	exthASIN         = 113
	exthUpdatedTitle = 503
)

// MobiMetadata holds the header strings of a MOBI container, already
// decoded to text. Author and Subject keep their source delimiters; the
// normalizer splits them.
type MobiMetadata struct {
	Title       string
	Author      string
	Publisher   string
	Imprint     string
	Description string
	Subject     string
	ISBN        string
	ASIN        string
	PublishDate string
	warnings    []error
}

func (*MobiMetadata) Format() entities.Format { return entities.FormatMobi }

func (m *MobiMetadata) Warnings() []error { return m.warnings }

// MobiAdapter reads PalmDB/MOBI/EXTH header records.
type MobiAdapter struct{}

func (MobiAdapter) Format() entities.Format { return entities.FormatMobi }

// mobiSource is the subset of *os.File used by the reader.
type mobiSource interface {
	io.ReaderAt
	io.Closer
	Stat() (fs.FileInfo, error)
}

// Replaceable so tests can observe handle lifetimes.
var openMobiSource = func(name string) (mobiSource, error) {
	return os.Open(name)
}

// mobiFile owns the open container for the duration of one Extract call.
// All reads are bounds-checked against the file size.
type mobiFile struct {
	path string
	src  mobiSource
	size int64

	closeOnce sync.Once
	closeErr  error
}

func openMobi(path string) (*mobiFile, error) {
	src, err := openMobiSource(path)
	if err != nil {
		return nil, err
	}
	info, err := src.Stat()
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return &mobiFile{path: path, src: src, size: info.Size()}, nil
}

// Close releases the underlying file. Repeated calls are no-ops.
func (m *mobiFile) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.src.Close()
	})
	return m.closeErr
}

func (m *mobiFile) read(off int64, n int, what string) ([]byte, error) {
	if off < 0 || n < 0 || off+int64(n) > m.size {
		return nil, corrupt(m.path, mobiFormat,
			fmt.Sprintf("%s: %d bytes at offset %d exceed file size %d", what, n, off, m.size), nil)
	}
	buf := make([]byte, n)
	if _, err := m.src.ReadAt(buf, off); err != nil {
		return nil, corrupt(m.path, mobiFormat, "read "+what, err)
	}
	return buf, nil
}

// Extract reads the header metadata of the MOBI file at path. The file is
// closed before Extract returns, on success and on failure.
func (MobiAdapter) Extract(path string) (RawMetadata, error) {
	mf, err := openMobi(path)
	if err != nil {
		return nil, err
	}
	defer mf.Close()

	return mf.metadata()
}

func (m *mobiFile) metadata() (*MobiMetadata, error) {
	header, err := m.read(0, palmHeaderSize, "PalmDB header")
	if err != nil {
		return nil, err
	}
	if kind := string(header[60:68]); kind != "BOOKMOBI" {
		return nil, corrupt(m.path, mobiFormat, fmt.Sprintf("PalmDB type %q is not BOOKMOBI", kind), nil)
	}

	numRecords := int(binary.BigEndian.Uint16(header[76:78]))
	if numRecords == 0 {
		return nil, missingHeader(m.path, mobiFormat, "PalmDB has no records")
	}

	recordList, err := m.read(palmHeaderSize, numRecords*palmRecordSize, "PalmDB record list")
	if err != nil {
		return nil, err
	}
	rec0Start := int64(binary.BigEndian.Uint32(recordList[0:4]))
	rec0End := m.size
	if numRecords > 1 {
		rec0End = int64(binary.BigEndian.Uint32(recordList[8:12]))
	}
	if rec0End <= rec0Start {
		return nil, corrupt(m.path, mobiFormat, "record 0 has non-positive length", nil)
	}
	rec0, err := m.read(rec0Start, int(rec0End-rec0Start), "record 0")
	if err != nil {
		return nil, err
	}

	if len(rec0) < palmDocSize+mobiEncodingOff+4 || string(rec0[palmDocSize:palmDocSize+4]) != "MOBI" {
		return nil, missingHeader(m.path, mobiFormat, "record 0 has no MOBI header")
	}
	mobi := rec0[palmDocSize:]
	headerLen := int(binary.BigEndian.Uint32(mobi[mobiHeaderLengthOff:]))
	encoding := binary.BigEndian.Uint32(mobi[mobiEncodingOff:])

	meta := &MobiMetadata{}
	text := func(field string, raw []byte) string {
		s, ok := decodeText(raw, encoding)
		if !ok {
			meta.warnings = append(meta.warnings, EncodingWarning{Field: field})
			return ""
		}
		return strings.TrimSpace(s)
	}

	var fullName string
	if len(mobi) >= mobiFullNameLenOff+4 {
		off := int(binary.BigEndian.Uint32(mobi[mobiFullNameOff:]))
		n := int(binary.BigEndian.Uint32(mobi[mobiFullNameLenOff:]))
		if off >= 0 && n > 0 && off+n <= len(rec0) {
			fullName = text("title", rec0[off:off+n])
		}
	}

	var updatedTitle string
	if len(mobi) >= mobiEXTHFlagsOff+4 && binary.BigEndian.Uint32(mobi[mobiEXTHFlagsOff:])&mobiEXTHFlag != 0 {
		records, err := m.exthRecords(rec0, palmDocSize+headerLen)
		if err != nil {
			return nil, err
		}
		var authors, subjects []string
		for _, r := range records {
			switch r.kind {
			case exthAuthor:
				if s := text("author", r.data); s != "" {
					authors = append(authors, s)
				}
			case exthSubject:
				if s := text("subject", r.data); s != "" {
					subjects = append(subjects, s)
				}
			case exthPublisher:
				meta.Publisher = firstNonEmpty(meta.Publisher, text("publisher", r.data))
			case exthImprint:
				meta.Imprint = firstNonEmpty(meta.Imprint, text("imprint", r.data))
			case exthDescription:
				meta.Description = firstNonEmpty(meta.Description, text("description", r.data))
			case exthISBN:
				meta.ISBN = firstNonEmpty(meta.ISBN, text("isbn", r.data))
			case exthASIN:
				meta.ASIN = firstNonEmpty(meta.ASIN, text("asin", r.data))
			case exthPublishDate:
				meta.PublishDate = firstNonEmpty(meta.PublishDate, text("date", r.data))
			case exthUpdatedTitle:
				updatedTitle = firstNonEmpty(updatedTitle, text("title", r.data))
			}
		}
		meta.Author = strings.Join(authors, ",")
		meta.Subject = strings.Join(subjects, ";")
	}

	palmName := text("title", header[0:32])
	meta.Title = firstNonEmpty(updatedTitle, fullName, palmName)

	return meta, nil
}

type exthRecord struct {
	kind uint32
	data []byte
}

func (m *mobiFile) exthRecords(rec0 []byte, start int) ([]exthRecord, error) {
	if start < 0 || start+12 > len(rec0) || string(rec0[start:start+4]) != "EXTH" {
		return nil, missingHeader(m.path, mobiFormat, "EXTH flag set but no EXTH header")
	}
	exth := rec0[start:]
	exthLen := int(binary.BigEndian.Uint32(exth[4:8]))
	if exthLen < 12 || exthLen > len(exth) {
		return nil, corrupt(m.path, mobiFormat, fmt.Sprintf("EXTH length %d out of range", exthLen), nil)
	}
	exth = exth[:exthLen]
	count := int(binary.BigEndian.Uint32(exth[8:12]))

	records := make([]exthRecord, 0, min(count, 64))
	pos := 12
	for i := 0; i < count; i++ {
		if pos+8 > len(exth) {
			return nil, corrupt(m.path, mobiFormat, fmt.Sprintf("EXTH record %d truncated", i), nil)
		}
		kind := binary.BigEndian.Uint32(exth[pos:])
		size := int(binary.BigEndian.Uint32(exth[pos+4:]))
		if size < 8 || pos+size > len(exth) {
			return nil, corrupt(m.path, mobiFormat, fmt.Sprintf("EXTH record %d has invalid size %d", i, size), nil)
		}
		records = append(records, exthRecord{kind: kind, data: exth[pos+8 : pos+size]})
		pos += size
	}
	return records, nil
}

// decodeText cuts raw at its first NUL and decodes it according to the
// container's declared text encoding.
func decodeText(raw []byte, encoding uint32) (string, bool) {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	if encoding == encodingCP1252 {
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil || !utf8.Valid(out) || strings.ContainsRune(string(out), utf8.RuneError) {
			return "", false
		}
		return string(out), true
	}
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
