// Package discovery finds script sources under a load root.
package discovery

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-scriptloader/loaderr"
)

// DefaultSuffix is the recognized script source extension.
const DefaultSuffix = ".js"

// Discover walks root recursively and returns every regular file whose name
// ends with suffix, in lexical walk order. Symlinks count when they resolve
// to a regular file; dangling links are skipped and linked directories are
// not descended into. Permission failures map to
// ACCESS_DENIED, other walk failures to ACCESS_ERROR, and an empty result to
// NO_SOURCES_FOUND.
func Discover(root string, suffix string) ([]string, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return classify(path, err)
		}
		if !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}
		regular, err := isRegular(path, d)
		if err != nil {
			return classify(path, err)
		}
		if regular {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, loaderr.NoSources(root)
	}
	return files, nil
}

func isRegular(path string, d fs.DirEntry) (bool, error) {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.Type().IsRegular(), nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func classify(path string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return loaderr.AccessDenied(path, err)
	}
	return loaderr.Access(path, err)
}
