// Package scan provides the directory-backed file source.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lukechampine.com/blake3"

	"github.com/kyle0527/mermaid-dist/internal/filesource"
	"github.com/kyle0527/mermaid-dist/internal/ignore"
)

// DirectorySource reads Python files from a filesystem directory.
type DirectorySource struct {
	rootPath   string
	maxFiles   int
	files      []*filesource.FileInfo
	identifier string
	ignore     *ignore.Matcher
}

// Option configures a DirectorySource.
type Option func(*DirectorySource)

// WithIgnore sets a custom ignore matcher.
func WithIgnore(m *ignore.Matcher) Option {
	return func(ds *DirectorySource) {
		ds.ignore = m
	}
}

// WithMaxFiles caps how many files are collected (0 means unlimited).
func WithMaxFiles(n int) Option {
	return func(ds *DirectorySource) {
		ds.maxFiles = n
	}
}

// OpenDirectory opens a directory as a file source and collects its
// Python files up front.
func OpenDirectory(dirPath string, opts ...Option) (*DirectorySource, error) {
	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absPath)
	}

	ds := &DirectorySource{rootPath: absPath}
	for _, opt := range opts {
		opt(ds)
	}

	if ds.ignore == nil {
		ds.ignore, err = ignore.LoadFromDir(absPath)
		if err != nil {
			return nil, fmt.Errorf("loading ignore patterns: %w", err)
		}
	}

	if err := ds.collectFiles(); err != nil {
		return nil, err
	}
	ds.computeIdentifier()

	return ds, nil
}

// Root returns the absolute root path of the source.
func (ds *DirectorySource) Root() string {
	return ds.rootPath
}

// GetFiles returns all collected Python files, sorted by path.
func (ds *DirectorySource) GetFiles() ([]*filesource.FileInfo, error) {
	return ds.files, nil
}

// GetFile returns a specific file by root-relative path.
func (ds *DirectorySource) GetFile(path string) (*filesource.FileInfo, error) {
	for _, f := range ds.files {
		if f.Path == path {
			return f, nil
		}
	}
	return nil, fmt.Errorf("file not found: %s", path)
}

// Identifier returns the content hash of all collected files.
func (ds *DirectorySource) Identifier() string {
	return ds.identifier
}

// SourceType returns "directory".
func (ds *DirectorySource) SourceType() string {
	return "directory"
}

func (ds *DirectorySource) collectFiles() error {
	var files []*filesource.FileInfo

	err := filepath.Walk(ds.rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(ds.rootPath, path)
		if err != nil {
			return fmt.Errorf("getting relative path: %w", err)
		}
		relPath = filepath.ToSlash(relPath)

		if ds.ignore != nil && relPath != "." && ds.ignore.Match(relPath, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(path), ".py") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading file %s: %w", path, err)
		}

		files = append(files, &filesource.FileInfo{Path: relPath, Content: content})
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	if ds.maxFiles > 0 && len(files) > ds.maxFiles {
		files = files[:ds.maxFiles]
	}

	ds.files = files
	return nil
}

// computeIdentifier hashes all file paths and contents with BLAKE3.
func (ds *DirectorySource) computeIdentifier() {
	hasher := blake3.New(32, nil)
	for _, f := range ds.files {
		hasher.Write([]byte(f.Path))
		hasher.Write([]byte("\n"))
		hasher.Write(f.Content)
		hasher.Write([]byte("\n"))
	}
	ds.identifier = fmt.Sprintf("%x", hasher.Sum(nil))
}
