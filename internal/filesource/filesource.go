// Package filesource abstracts where Python sources are read from.
package filesource

// FileInfo contains one source file, path relative to the source root.
type FileInfo struct {
	Path    string
	Content []byte
}

// FileSource abstracts the origin of files (directory or Git ref).
type FileSource interface {
	// GetFiles returns all Python source files in deterministic order.
	GetFiles() ([]*FileInfo, error)

	// GetFile returns a specific file by path.
	GetFile(path string) (*FileInfo, error)

	// Identifier returns a unique identifier for this source state.
	// For directories: a content hash. For Git: the commit hash.
	Identifier() string

	// SourceType returns "directory" or "git".
	SourceType() string
}
