package media

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrOutsideRoot = errors.New("path outside media directory")
	ErrBadName     = errors.New("invalid media path")
)

// Library is the directory served under URLPrefix.
type Library struct {
	root string // absolute
}

func NewLibrary(dir string) (*Library, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Library{root: abs}, nil
}

// Root returns the absolute media directory.
func (l *Library) Root() string { return l.root }

// Resolve maps a slash-separated path relative to the library (as found
// after URLPrefix) to a file path, refusing anything that escapes the root.
func (l *Library) Resolve(rel string) (string, error) {
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || strings.ContainsRune(rel, 0) || strings.Contains(rel, "\\") {
		return "", ErrBadName
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", ErrOutsideRoot
		}
	}

	abs := filepath.Join(l.root, filepath.FromSlash(path.Clean("/" + rel)))
	rootPrefix := filepath.Clean(l.root) + string(filepath.Separator)
	if !strings.HasPrefix(abs, rootPrefix) {
		return "", ErrOutsideRoot
	}
	return abs, nil
}
