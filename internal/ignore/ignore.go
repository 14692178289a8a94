// Package ignore provides gitignore-style pattern matching used to
// prune the project walk.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is a single ignore rule.
type Pattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool // pattern started with /, matches from root only
}

// Matcher holds compiled ignore patterns.
type Matcher struct {
	patterns []Pattern
	basePath string
}

// NewMatcher creates an empty matcher rooted at basePath.
func NewMatcher(basePath string) *Matcher {
	return &Matcher{basePath: basePath}
}

// AddPattern adds one gitignore-style pattern line.
func (m *Matcher) AddPattern(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	p := Pattern{}
	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}

	// A slash-free, unanchored pattern matches the basename at any
	// depth.
	if !p.anchored && !strings.Contains(line, "/") {
		line = "**/" + line
	}

	p.pattern = line
	m.patterns = append(m.patterns, p)
}

// AddPatterns adds multiple pattern lines.
func (m *Matcher) AddPatterns(lines []string) {
	for _, line := range lines {
		m.AddPattern(line)
	}
}

// LoadFile loads patterns from a gitignore-style file. A missing file
// is not an error.
func (m *Matcher) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		m.AddPattern(scanner.Text())
	}
	return scanner.Err()
}

// Match reports whether a root-relative path should be ignored.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")

	ignored := false
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			// A file is ignored when it sits inside a matching
			// directory.
			if m.matchDirPattern(p.pattern, path) {
				ignored = !p.negated
			}
			continue
		}
		if m.matchPattern(p.pattern, path) {
			ignored = !p.negated
		}
	}
	return ignored
}

func (m *Matcher) matchDirPattern(pattern, path string) bool {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if m.matchPattern(pattern, strings.Join(parts[:i], "/")) {
			return true
		}
	}
	return false
}

func (m *Matcher) matchPattern(pattern, path string) bool {
	matched, _ := doublestar.Match(pattern, path)
	if matched {
		return true
	}
	// "venv" should also match "venv/lib/foo.py".
	if !strings.HasSuffix(pattern, "/**") {
		matched, _ = doublestar.Match(pattern+"/**", path)
		if matched {
			return true
		}
	}
	return false
}

// LoadDefaults loads the default junk patterns for Python projects.
func (m *Matcher) LoadDefaults() {
	m.AddPatterns([]string{
		// Version control
		".git/",
		".hg/",
		".svn/",

		// Virtualenvs and installed packages
		"venv/",
		".venv/",
		"env/",
		"site-packages/",
		".eggs/",
		"*.egg-info/",

		// Bytecode and tool caches
		"__pycache__/",
		"*.py[cod]",
		".mypy_cache/",
		".pytest_cache/",
		".ruff_cache/",
		".tox/",
		".nox/",

		// Editors / OS noise
		".idea/",
		".vscode/",
		".DS_Store",

		// Build output
		"build/",
		"dist/",
	})
}

// LoadFromDir builds a matcher from defaults, then .gitignore, then
// .py2mermaidignore (later files can negate earlier patterns).
func LoadFromDir(dir string) (*Matcher, error) {
	m := NewMatcher(dir)
	m.LoadDefaults()

	if err := m.LoadFile(filepath.Join(dir, ".gitignore")); err != nil {
		return nil, err
	}
	if err := m.LoadFile(filepath.Join(dir, ".py2mermaidignore")); err != nil {
		return nil, err
	}
	return m, nil
}

// Compile creates a matcher from pattern strings only.
func Compile(patterns []string) *Matcher {
	m := NewMatcher("")
	m.AddPatterns(patterns)
	return m
}
