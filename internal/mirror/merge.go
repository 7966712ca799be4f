package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"symsync/internal/fsops"
)

// Sink receives human-readable progress and skip reports from the engine.
type Sink interface {
	Status(message string)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(message string)

func (f SinkFunc) Status(message string) { f(message) }

// NopSink discards all status messages.
var NopSink = SinkFunc(func(string) {})

// Merge makes targetDir reflect the direct and nested structure of
// sourceDir using links. It returns the number of links created. Item-level
// failures are reported to sink and skipped; the only error returned is a
// source or target that cannot be used at all.
func Merge(ctx context.Context, fsys fsops.FS, sourceDir, targetDir string, sink Sink) (int, error) {
	if sink == nil {
		sink = NopSink
	}
	if _, err := fsys.Stat(sourceDir); err != nil {
		return 0, fmt.Errorf("source directory %s: %w", sourceDir, err)
	}
	if err := fsys.MkdirAll(targetDir, 0o755); err != nil {
		return 0, fmt.Errorf("target directory %s: %w", targetDir, err)
	}
	visited := map[string]struct{}{}
	return merge(ctx, fsys, sourceDir, targetDir, sink, visited)
}

func merge(ctx context.Context, fsys fsops.FS, sourceDir, targetDir string, sink Sink, visited map[string]struct{}) (int, error) {
	// A directory link pointing back into a tree already being merged would
	// recurse forever; the resolved source path breaks the cycle.
	resolved := fsops.ResolveOnce(fsys, sourceDir)
	if _, seen := visited[resolved]; seen {
		sink.Status(fmt.Sprintf("skipping %s: directory cycle detected", sourceDir))
		return 0, nil
	}
	visited[resolved] = struct{}{}

	entries, err := fsys.ReadDir(sourceDir)
	if err != nil {
		return 0, fmt.Errorf("read source directory %s: %w", sourceDir, err)
	}

	linked := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return linked, err
		}

		srcPath := filepath.Join(sourceDir, entry.Name())
		dstPath := filepath.Join(targetDir, entry.Name())

		if !fsops.Exists(fsys, dstPath) {
			if err := fsops.CreateLink(fsys, dstPath, srcPath); err != nil {
				sink.Status(fmt.Sprintf("could not link %s: %v", dstPath, err))
				continue
			}
			linked++
			continue
		}

		if bothDirectories(fsys, srcPath, dstPath) {
			recurseInto, err := mergeTarget(fsys, dstPath)
			if err != nil {
				sink.Status(fmt.Sprintf("could not merge into %s: %v", dstPath, err))
				continue
			}
			if recurseInto == srcPath {
				// The destination is our own directory link; merging the
				// directory into itself cannot create anything.
				continue
			}
			n, err := merge(ctx, fsys, srcPath, recurseInto, sink, visited)
			linked += n
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return linked, err
				}
				sink.Status(fmt.Sprintf("merge of %s incomplete: %v", srcPath, err))
			}
			continue
		}

		if fsops.ResolveOnce(fsys, dstPath) == srcPath {
			// Already mirrored by an earlier pass; not a collision.
			continue
		}
		sink.Status(fmt.Sprintf("skipping %s: already exists", dstPath))
	}
	return linked, nil
}

// bothDirectories reports whether source and destination resolve to
// directories; either side may be a directory link.
func bothDirectories(fsys fsops.FS, srcPath, dstPath string) bool {
	srcInfo, err := fsys.Stat(srcPath)
	if err != nil || !srcInfo.IsDir() {
		return false
	}
	dstInfo, err := fsys.Stat(dstPath)
	return err == nil && dstInfo.IsDir()
}

// mergeTarget resolves the destination through exactly one level of link
// indirection and guarantees the resolved directory exists.
func mergeTarget(fsys fsops.FS, dstPath string) (string, error) {
	resolved := fsops.ResolveOnce(fsys, dstPath)
	if _, err := fsys.Stat(resolved); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if err := fsys.MkdirAll(resolved, 0o755); err != nil {
			return "", err
		}
	}
	return resolved, nil
}
