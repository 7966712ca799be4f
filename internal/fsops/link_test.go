package fsops

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateAndRemoveFileLink(t *testing.T) {
	dir := t.TempDir()
	fsys := NewOS()

	real := filepath.Join(dir, "real.txt")
	if err := os.WriteFile(real, []byte("content"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	link := filepath.Join(dir, "link.txt")

	if err := CreateLink(fsys, link, real); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	if !Exists(fsys, link) {
		t.Fatal("link should exist")
	}
	data, err := os.ReadFile(link)
	if err != nil || string(data) != "content" {
		t.Fatalf("link does not resolve: %v %q", err, data)
	}

	if err := RemoveLink(fsys, link); err != nil {
		t.Fatalf("RemoveLink failed: %v", err)
	}
	if Exists(fsys, link) {
		t.Fatal("link should be gone")
	}
	if !Exists(fsys, real) {
		t.Fatal("removal must not touch the link target")
	}
}

func TestRemoveLinkDirectoryLinkKeepsTarget(t *testing.T) {
	dir := t.TempDir()
	fsys := NewOS()

	realDir := filepath.Join(dir, "payload")
	if err := os.MkdirAll(realDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	inner := filepath.Join(realDir, "keep.txt")
	if err := os.WriteFile(inner, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	link := filepath.Join(dir, "payload-link")
	if err := CreateLink(fsys, link, realDir); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	if err := RemoveLink(fsys, link); err != nil {
		t.Fatalf("RemoveLink failed: %v", err)
	}
	if _, err := os.Stat(inner); err != nil {
		t.Fatalf("real directory contents must survive link removal: %v", err)
	}
}

func TestRemoveLinkRefusesNonEmptyRealDirectory(t *testing.T) {
	dir := t.TempDir()
	fsys := NewOS()

	realDir := filepath.Join(dir, "realdir")
	if err := os.MkdirAll(filepath.Join(realDir, "child"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := RemoveLink(fsys, realDir); err == nil {
		t.Fatal("expected removal of non-empty real directory to fail")
	}
}

func TestExistsSeesBrokenLink(t *testing.T) {
	dir := t.TempDir()
	fsys := NewOS()

	link := filepath.Join(dir, "dangling")
	if err := CreateLink(fsys, link, filepath.Join(dir, "missing")); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	if !Exists(fsys, link) {
		t.Fatal("broken link must still count as existing")
	}
}

func TestResolveOnce(t *testing.T) {
	dir := t.TempDir()
	fsys := NewOS()

	realDir := filepath.Join(dir, "actual")
	if err := os.MkdirAll(realDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	link := filepath.Join(dir, "alias")
	if err := CreateLink(fsys, link, realDir); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	if got := ResolveOnce(fsys, link); got != realDir {
		t.Fatalf("ResolveOnce(link) = %s, want %s", got, realDir)
	}
	if got := ResolveOnce(fsys, realDir); got != realDir {
		t.Fatalf("ResolveOnce(real) = %s, want %s", got, realDir)
	}
}
