package mediastore

import "io"

// Store persists media artifacts under store-relative paths. Relative paths
// never leave the backend; external clients address media by numeric id
// through meeting-scoped URLs.
type Store interface {
	Save(relPath string, data []byte) error
	Append(relPath string, data []byte) error
	Open(relPath string) (io.ReadCloser, error)
	Size(relPath string) (int64, error)
	Exists(relPath string) bool
	Remove(relPath string) error
}
