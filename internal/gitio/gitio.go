// Package gitio reads Python sources from a Git ref using go-git,
// without touching the worktree.
package gitio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/kyle0527/mermaid-dist/internal/filesource"
	"github.com/kyle0527/mermaid-dist/internal/ignore"
)

// RefSource is a FileSource backed by the tree of one commit.
type RefSource struct {
	commit   *object.Commit
	files    []*filesource.FileInfo
	maxFiles int
	ignore   *ignore.Matcher
}

// Option configures a RefSource.
type Option func(*RefSource)

// WithIgnore sets a custom ignore matcher.
func WithIgnore(m *ignore.Matcher) Option {
	return func(rs *RefSource) {
		rs.ignore = m
	}
}

// WithMaxFiles caps how many files are collected (0 means unlimited).
func WithMaxFiles(n int) Option {
	return func(rs *RefSource) {
		rs.maxFiles = n
	}
}

// OpenRef opens repoPath and resolves refName (branch, tag, or commit
// hash) to a commit, collecting its Python files.
func OpenRef(repoPath, refName string, opts ...Option) (*RefSource, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	commit, err := resolveRef(repo, refName)
	if err != nil {
		return nil, err
	}

	rs := &RefSource{commit: commit}
	for _, opt := range opts {
		opt(rs)
	}

	if err := rs.collectFiles(); err != nil {
		return nil, err
	}
	return rs, nil
}

// resolveRef tries branch, then tag, then raw commit hash.
func resolveRef(repo *git.Repository, refName string) (*object.Commit, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(refName), true)
	if err == nil {
		commit, err := repo.CommitObject(ref.Hash())
		if err != nil {
			return nil, fmt.Errorf("getting commit: %w", err)
		}
		return commit, nil
	}

	ref, err = repo.Reference(plumbing.NewTagReferenceName(refName), true)
	if err == nil {
		commit, err := repo.CommitObject(ref.Hash())
		if err != nil {
			return nil, fmt.Errorf("getting commit: %w", err)
		}
		return commit, nil
	}

	commit, err := repo.CommitObject(plumbing.NewHash(refName))
	if err != nil {
		return nil, fmt.Errorf("resolving ref %q: not a branch, tag, or commit hash", refName)
	}
	return commit, nil
}

func (rs *RefSource) collectFiles() error {
	tree, err := rs.commit.Tree()
	if err != nil {
		return fmt.Errorf("getting tree: %w", err)
	}

	var files []*filesource.FileInfo
	err = tree.Files().ForEach(func(f *object.File) error {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".py") {
			return nil
		}
		if rs.ignore != nil && rs.ignore.Match(f.Name, false) {
			return nil
		}

		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("reading file %s: %w", f.Name, err)
		}
		files = append(files, &filesource.FileInfo{
			Path:    f.Name,
			Content: []byte(content),
		})
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	if rs.maxFiles > 0 && len(files) > rs.maxFiles {
		files = files[:rs.maxFiles]
	}

	rs.files = files
	return nil
}

// GetFiles returns all Python files in the commit tree, sorted by path.
func (rs *RefSource) GetFiles() ([]*filesource.FileInfo, error) {
	return rs.files, nil
}

// GetFile returns a specific file from the commit tree.
func (rs *RefSource) GetFile(path string) (*filesource.FileInfo, error) {
	for _, f := range rs.files {
		if f.Path == path {
			return f, nil
		}
	}
	return nil, fmt.Errorf("file not found: %s", path)
}

// Identifier returns the commit hash.
func (rs *RefSource) Identifier() string {
	return rs.commit.Hash.String()
}

// SourceType returns "git".
func (rs *RefSource) SourceType() string {
	return "git"
}
