// Package fsx executes proposed moves against the library directory.
package fsx

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/roots/internal/importer"
)

// Replaceable so tests can simulate EXDEV.
var renameFunc = os.Rename

// PathTypeConflictError reports a destination that exists with the wrong
// type, such as a directory where a file is expected.
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("destination %q is a %s, want %s", e.Path, e.Got, e.Want)
}

// Canonical resolves path to an absolute path with symlinks evaluated.
// Trailing components that do not exist yet are kept as given.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	var rest []string
	dir := abs
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		rest = append([]string{filepath.Base(dir)}, rest...)
		dir = parent
	}
}

// Executor performs ProposedMoves. With Prune set, source directories left
// empty by a relocation are removed up to, but excluding, PruneRoot. Without
// PruneRoot only the immediate source directory is considered.
type Executor struct {
	Prune     bool
	PruneRoot string
	Logger    *slog.Logger
}

// Execute copies or moves move.Source to move.Destination and returns the
// canonical destination. An existing destination is an error wrapping
// fs.ErrExist unless move.Overwrite is set.
func (e *Executor) Execute(move importer.ProposedMove) (string, error) {
	src, err := Canonical(move.Source)
	if err != nil {
		return "", err
	}
	dst, err := Canonical(move.Destination)
	if err != nil {
		return "", err
	}
	if src == dst {
		return dst, nil
	}

	if fi, err := os.Lstat(dst); err == nil {
		if fi.IsDir() {
			return "", &PathTypeConflictError{Path: dst, Want: "file", Got: "directory"}
		}
		if !move.Overwrite {
			return "", fmt.Errorf("%s: %w", dst, fs.ErrExist)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	if !move.Relocate {
		if err := copyFileAtomic(src, dst); err != nil {
			return "", err
		}
		e.logger().Debug("Copied file", "source", src, "destination", dst)
		return dst, nil
	}

	if err := renameFunc(src, dst); err != nil {
		if !isEXDEV(err) {
			return "", err
		}
		// Cross-device: copy, then drop the source.
		if err := copyFileAtomic(src, dst); err != nil {
			return "", err
		}
		if err := os.Remove(src); err != nil {
			return "", err
		}
	}
	e.logger().Debug("Moved file", "source", src, "destination", dst)

	if e.Prune {
		e.prune(filepath.Dir(src))
	}
	return dst, nil
}

func (e *Executor) prune(dir string) {
	if e.PruneRoot == "" {
		if os.Remove(dir) == nil {
			e.logger().Debug("Pruned empty directory", "dir", dir)
		}
		return
	}
	stop, err := Canonical(e.PruneRoot)
	if err != nil {
		return
	}
	for strings.HasPrefix(dir, stop+string(filepath.Separator)) {
		// Remove fails on non-empty directories, which ends the walk.
		if err := os.Remove(dir); err != nil {
			return
		}
		e.logger().Debug("Pruned empty directory", "dir", dir)
		dir = filepath.Dir(dir)
	}
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// copyFileAtomic writes a copy of src next to dst and renames it into place.
func copyFileAtomic(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dir, name := filepath.Split(dst)
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return renameFunc(tmpName, dst)
}
