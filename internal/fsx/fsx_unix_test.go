//go:build unix

package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/roots/internal/importer"
)

func TestExecuteRelocateCrossDevice(t *testing.T) {
	root := canonicalTempDir(t)
	src := filepath.Join(root, "a.epub")
	dst := filepath.Join(root, "lib", "a.epub")
	write(t, src, "book")

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		if strings.Contains(filepath.Base(oldpath), ".tmp-") {
			return os.Rename(oldpath, newpath)
		}
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	t.Cleanup(func() { renameFunc = old })

	_, err := (&Executor{}).Execute(importer.ProposedMove{Source: src, Destination: dst, Relocate: true})
	require.NoError(t, err)

	assert.Equal(t, "book", read(t, dst))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestExecuteRelocateOtherRenameError(t *testing.T) {
	root := canonicalTempDir(t)
	src := filepath.Join(root, "a.epub")
	write(t, src, "book")

	old := renameFunc
	renameFunc = func(string, string) error { return os.ErrPermission }
	t.Cleanup(func() { renameFunc = old })

	_, err := (&Executor{}).Execute(importer.ProposedMove{Source: src, Destination: filepath.Join(root, "lib", "a.epub"), Relocate: true})
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, "book", read(t, src))
}
