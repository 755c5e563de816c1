package types

import (
	"io/fs"
)

// FS is the filesystem interface required for nixstall operations.
// Privileged writes under the target root go through the process runner
// instead, so this surface stays read-mostly.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
}
