package fsops

import (
	"io/fs"
	"os"
)

// FS is the filesystem capability surface used by the mirroring engine.
type FS interface {
	// Stat follows links.
	Stat(name string) (fs.FileInfo, error)
	// Lstat reports on the entry itself, so broken links still exist.
	Lstat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	Readlink(name string) (string, error)
	Symlink(oldname, newname string) error
	Remove(name string) error
	MkdirAll(path string, perm fs.FileMode) error
}

type osFS struct{}

// NewOS returns the FS backed by the host operating system.
func NewOS() FS {
	return osFS{}
}

func (osFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (osFS) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}

func (osFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

func (osFS) Readlink(name string) (string, error) {
	return os.Readlink(name)
}

func (osFS) Symlink(oldname, newname string) error {
	return os.Symlink(oldname, newname)
}

func (osFS) Remove(name string) error {
	return os.Remove(name)
}

func (osFS) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}
