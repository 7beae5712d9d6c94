package importer

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrlokans/roots/internal/ebook"
)

// Discover lists the importable files under root in lexical order. A root
// that is a regular file is returned as is, so that an unsupported file
// named explicitly still produces a per-file error. Hidden directories and
// any directory in exclude are skipped.
func Discover(root string, exclude ...string) ([]string, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	excluded := make([]string, 0, len(exclude))
	for _, x := range exclude {
		if x = strings.TrimSpace(x); x != "" {
			excluded = append(excluded, filepath.Clean(x))
		}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || isExcluded(path, excluded)) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && ebook.Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if path == base || strings.HasPrefix(path, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
