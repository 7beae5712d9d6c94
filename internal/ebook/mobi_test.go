package ebook

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/roots/internal/ebook/ebooktest"
	"github.com/mrlokans/roots/internal/entities"
)

func TestMobiExtract(t *testing.T) {
	path := ebooktest.WriteMobi(t, t.TempDir(), "dune.mobi", ebooktest.Mobi{
		PalmName: "Dune_PalmDB",
		FullName: []byte("Dune"),
		EXTH: []ebooktest.EXTHRecord{
			ebooktest.Record(ebooktest.EXTHAuthor, "Frank Herbert"),
			ebooktest.Record(ebooktest.EXTHPublisher, "Chilton Books"),
			ebooktest.Record(ebooktest.EXTHImprint, "Ace"),
			ebooktest.Record(ebooktest.EXTHDescription, "Desert planet."),
			ebooktest.Record(ebooktest.EXTHISBN, "9780441013593"),
			ebooktest.Record(ebooktest.EXTHSubject, "Science fiction"),
			ebooktest.Record(ebooktest.EXTHSubject, "Arrakis"),
			ebooktest.Record(ebooktest.EXTHPublishDate, "1965-08-01T00:00:00+00:00"),
			ebooktest.Record(ebooktest.EXTHASIN, "B00B7NPRY8"),
		},
	})

	raw, err := MobiAdapter{}.Extract(path)
	require.NoError(t, err)

	meta, ok := raw.(*MobiMetadata)
	require.True(t, ok)
	assert.Equal(t, entities.FormatMobi, meta.Format())
	assert.Equal(t, "Dune", meta.Title)
	assert.Equal(t, "Frank Herbert", meta.Author)
	assert.Equal(t, "Chilton Books", meta.Publisher)
	assert.Equal(t, "Ace", meta.Imprint)
	assert.Equal(t, "Desert planet.", meta.Description)
	assert.Equal(t, "9780441013593", meta.ISBN)
	assert.Equal(t, "Science fiction;Arrakis", meta.Subject)
	assert.Equal(t, "1965-08-01T00:00:00+00:00", meta.PublishDate)
	assert.Equal(t, "B00B7NPRY8", meta.ASIN)
	assert.Empty(t, meta.Warnings())
}

func TestMobiTitlePrecedence(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		mobi ebooktest.Mobi
		want string
	}{
		{
			name: "updated title wins",
			mobi: ebooktest.Mobi{
				PalmName: "palm",
				FullName: []byte("full"),
				EXTH:     []ebooktest.EXTHRecord{ebooktest.Record(ebooktest.EXTHUpdatedTitle, "updated")},
			},
			want: "updated",
		},
		{
			name: "full name over palm name",
			mobi: ebooktest.Mobi{PalmName: "palm", FullName: []byte("full")},
			want: "full",
		},
		{
			name: "palm name fallback",
			mobi: ebooktest.Mobi{PalmName: "palm"},
			want: "palm",
		},
		{
			name: "full name cut at NUL",
			mobi: ebooktest.Mobi{PalmName: "palm", FullName: []byte("full\x00garbage")},
			want: "full",
		},
		{
			name: "EXTH title cut at first NUL",
			mobi: ebooktest.Mobi{
				PalmName: "palm",
				FullName: []byte("full"),
				EXTH:     []ebooktest.EXTHRecord{{Type: ebooktest.EXTHUpdatedTitle, Data: []byte("upd\x00ated\x00")}},
			},
			want: "upd",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ebooktest.WriteMobi(t, dir, filepath.Base(t.Name())+string(rune('a'+i))+".mobi", tt.mobi)
			raw, err := MobiAdapter{}.Extract(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, raw.(*MobiMetadata).Title)
		})
	}
}

func TestMobiEncoding(t *testing.T) {
	dir := t.TempDir()

	t.Run("cp1252 decoded", func(t *testing.T) {
		path := ebooktest.WriteMobi(t, dir, "cp1252.mobi", ebooktest.Mobi{
			PalmName: "x",
			Encoding: ebooktest.CP1252,
			FullName: []byte("Caf\xe9"),
			EXTH:     []ebooktest.EXTHRecord{{Type: ebooktest.EXTHAuthor, Data: []byte("Ren\xe9e\x00\xff")}},
		})
		raw, err := MobiAdapter{}.Extract(path)
		require.NoError(t, err)
		meta := raw.(*MobiMetadata)
		assert.Equal(t, "Café", meta.Title)
		assert.Equal(t, "Renée", meta.Author)
		assert.Empty(t, meta.Warnings())
	})

	t.Run("invalid utf-8 drops the field", func(t *testing.T) {
		path := ebooktest.WriteMobi(t, dir, "badutf8.mobi", ebooktest.Mobi{
			PalmName: "x",
			FullName: []byte("Title"),
			EXTH: []ebooktest.EXTHRecord{
				{Type: ebooktest.EXTHPublisher, Data: []byte{0xff, 0xfe, 'P'}},
				ebooktest.Record(ebooktest.EXTHAuthor, "Author"),
			},
		})
		raw, err := MobiAdapter{}.Extract(path)
		require.NoError(t, err)
		meta := raw.(*MobiMetadata)
		assert.Empty(t, meta.Publisher)
		assert.Equal(t, "Author", meta.Author)
		assert.Equal(t, "Title", meta.Title)
		require.Len(t, meta.Warnings(), 1)
		assert.ErrorIs(t, meta.Warnings()[0], ErrEncoding)
		assert.Equal(t, EncodingWarning{Field: "publisher"}, meta.Warnings()[0])
	})
}

func TestMobiExtractErrors(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.mobi")
	require.NoError(t, os.WriteFile(short, []byte("BOOKMOBI"), 0o644))

	tests := []struct {
		name string
		path string
		kind error
	}{
		{"truncated header", short, ErrCorruptFile},
		{"not bookmobi", ebooktest.WriteMobi(t, dir, "text.mobi", ebooktest.Mobi{PalmName: "x", PalmType: "TEXtREAd"}), ErrCorruptFile},
		{"no records", ebooktest.WriteMobi(t, dir, "empty.mobi", ebooktest.Mobi{PalmName: "x", NoRecords: true}), ErrMissingHeader},
		{"no mobi header", ebooktest.WriteMobi(t, dir, "nomobi.mobi", ebooktest.Mobi{PalmName: "x", NoMOBIHeader: true}), ErrMissingHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MobiAdapter{}.Extract(tt.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

type countingSource struct {
	*os.File
	closes *atomic.Int32
}

func (c countingSource) Close() error {
	c.closes.Add(1)
	return c.File.Close()
}

func TestMobiReleasesHandleOnce(t *testing.T) {
	dir := t.TempDir()
	good := ebooktest.WriteMobi(t, dir, "good.mobi", ebooktest.Mobi{PalmName: "ok", FullName: []byte("ok")})
	bad := ebooktest.WriteMobi(t, dir, "bad.mobi", ebooktest.Mobi{PalmName: "x", NoMOBIHeader: true})

	var closes atomic.Int32
	orig := openMobiSource
	openMobiSource = func(name string) (mobiSource, error) {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		return countingSource{File: f, closes: &closes}, nil
	}
	t.Cleanup(func() { openMobiSource = orig })

	_, err := MobiAdapter{}.Extract(good)
	require.NoError(t, err)
	assert.Equal(t, int32(1), closes.Load())

	_, err = MobiAdapter{}.Extract(bad)
	require.ErrorIs(t, err, ErrMissingHeader)
	assert.Equal(t, int32(2), closes.Load())
}

func TestMobiFileCloseIdempotent(t *testing.T) {
	path := ebooktest.WriteMobi(t, t.TempDir(), "close.mobi", ebooktest.Mobi{PalmName: "x"})
	mf, err := openMobi(path)
	require.NoError(t, err)

	require.NoError(t, mf.Close())
	require.NoError(t, mf.Close())
}
