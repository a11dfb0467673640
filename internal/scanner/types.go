package scanner

import (
	"os"
	"syscall"
	"time"
)

// FileDescriptor is the output of traversal: a regular file discovered under
// one of the configured root paths, with just enough metadata for the
// grouping pipeline to key and hash it. This is the boundary type between
// the traversal collaborator (out of the engine's core scope, per spec) and
// the grouper.
type FileDescriptor struct {
	Path    string
	Size    int64
	ModTime time.Time
	Dev     uint64
	Ino     uint64
	Nlink   uint32
}

// newFileDescriptor builds a FileDescriptor from os.FileInfo and its path.
func newFileDescriptor(path string, info os.FileInfo) *FileDescriptor {
	stat := info.Sys().(*syscall.Stat_t)
	return &FileDescriptor{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Dev:     uint64(stat.Dev), //nolint:unconvert // platform-dependent type
		Ino:     stat.Ino,
		Nlink:   uint32(stat.Nlink),
	}
}
