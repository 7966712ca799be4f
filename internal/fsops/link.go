package fsops

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// CreateLink places a symlink at linkPath pointing to existingPath. The
// same call covers file and directory links on every Go port; callers treat
// a failure as "this one item was not mirrored" and continue.
func CreateLink(fsys FS, linkPath, existingPath string) error {
	if err := fsys.Symlink(existingPath, linkPath); err != nil {
		return fmt.Errorf("create link %s -> %s: %w", linkPath, existingPath, err)
	}
	return nil
}

// RemoveLink removes the entry at path without following it. Removal
// targets the entry itself and never recurses, so a directory link is
// unlinked while the real directory it points at stays intact. A real
// non-empty directory at path fails instead of being deleted.
func RemoveLink(fsys FS, path string) error {
	if err := fsys.Remove(path); err != nil {
		return fmt.Errorf("remove link %s: %w", path, err)
	}
	return nil
}

// Exists reports whether an entry occupies path, without dereferencing, so
// broken links count as existing.
func Exists(fsys FS, path string) bool {
	_, err := fsys.Lstat(path)
	return err == nil
}

// IsSymlink reports whether the file info describes a symbolic link.
func IsSymlink(fi fs.FileInfo) bool {
	return fi.Mode()&fs.ModeSymlink != 0
}

// ResolveOnce follows exactly one level of link indirection. A non-link
// path resolves to itself; relative link targets resolve against the link's
// directory.
func ResolveOnce(fsys FS, path string) string {
	fi, err := fsys.Lstat(path)
	if err != nil || !IsSymlink(fi) {
		return path
	}
	dest, err := fsys.Readlink(path)
	if err != nil {
		return path
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(path), dest)
	}
	return filepath.Clean(dest)
}
