// Package discover finds and reads the files to compare.
package discover

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jmylchreest/winnow/pkg/logging"
	"github.com/jmylchreest/winnow/pkg/tokenizer"
)

// binarySniffLen is how many leading bytes are checked for NUL.
const binarySniffLen = 8000

// Options filters discovered files.
type Options struct {
	// Include keeps only files whose path relative to their root matches
	// one of these doublestar globs. Empty keeps everything.
	Include []string
	// Exclude drops files whose relative path matches any of these globs.
	Exclude []string
	// MaxFileSize skips larger files. 0 disables the limit.
	MaxFileSize int64
	Logger      *slog.Logger
}

// Validate checks that every glob is well formed.
func (o Options) Validate() error {
	for _, p := range append(append([]string{}, o.Include...), o.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob %q", p)
		}
	}
	return nil
}

// Discover walks roots and returns the matching files sorted by path, with
// ids assigned in that order. A root naming a regular file is always
// included.
func Discover(roots []string, opts Options) ([]tokenizer.File, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	seen := make(map[string]bool)
	var paths []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		matcher, err := NewMatcher(root)
		if err != nil {
			return nil, fmt.Errorf("load ignore rules for %s: %w", root, err)
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				logger.Warn("skipping unreadable path", "path", path, "error", walkErr)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if path != root && matcher.Ignored(rel, true) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || matcher.Ignored(rel, false) || !opts.selected(rel) {
				return nil
			}
			if opts.MaxFileSize > 0 {
				if fi, err := d.Info(); err == nil && fi.Size() > opts.MaxFileSize {
					logger.Debug("skipping large file", "path", path, "size", fi.Size())
					return nil
				}
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Strings(paths)
	files := make([]tokenizer.File, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if isBinary(content) {
			logger.Debug("skipping binary file", "path", path)
			continue
		}
		files = append(files, tokenizer.File{
			ID:      len(files),
			Path:    path,
			Content: string(content),
		})
	}
	logger.Debug("discovered files", "roots", len(roots), "files", len(files))
	return files, nil
}

// ReadFile reads a single file, such as an ignore template, with the given id.
func ReadFile(path string, id int) (*tokenizer.File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &tokenizer.File{ID: id, Path: path, Content: string(content)}, nil
}

func (o Options) selected(rel string) bool {
	for _, p := range o.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	if len(o.Include) == 0 {
		return true
	}
	for _, p := range o.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func isBinary(content []byte) bool {
	if len(content) > binarySniffLen {
		content = content[:binarySniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}
