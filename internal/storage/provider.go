// Package storage defines the root-relative file-system abstraction used by
// the document store, the index cache and the settings store.
package storage

// Entry is one child of a directory.
type Entry struct {
	Name  string
	IsDir bool
}

// Provider is the interface for file operations below the storage root.
// All paths are relative to the root and use forward slashes.
type Provider interface {
	// Root returns the absolute storage root.
	Root() string
	// Entries lists the direct children of dir, sorted by name.
	Entries(dir string) ([]Entry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath, creating the destination directory.
	Move(oldPath, newPath string) error
	// Mkdir creates dir and any missing parents.
	Mkdir(dir string) error
	// Exists reports whether path exists.
	Exists(path string) (bool, error)
}
