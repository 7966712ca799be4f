package logs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// TailOptions selects which part of the log file to read. A negative
// Offset asks for the trailing Limit lines; a non-negative Offset reads
// everything written after that byte position. With Follow set, an empty
// read blocks up to Wait for new lines to arrive.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

const pollInterval = 250 * time.Millisecond

// Tail reads log lines according to opts. A missing file is not an error;
// it reports no lines and offset zero so callers can retry after the
// daemon creates the file.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	offset := opts.Offset
	var lines []string
	if offset < 0 {
		lines, offset, err = snapshotTail(path, opts.Limit)
	} else {
		if offset > info.Size() {
			offset = info.Size()
		}
		lines, offset, err = readAfter(path, offset)
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}

	result := TailResult{Lines: lines, Offset: offset}
	if len(lines) > 0 || !opts.Follow || opts.Wait == 0 {
		return result, nil
	}
	return pollForLines(ctx, path, offset, opts.Wait)
}

// snapshotTail returns the last limit lines of the file and the offset at
// its current end.
func snapshotTail(path string, limit int) ([]string, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset := int64(len(data))
	if limit <= 0 {
		return nil, offset, nil
	}

	lines := splitLines(data)
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, offset, nil
}

// readAfter returns every line written at or past offset and the offset of
// the end of the data read.
func readAfter(path string, offset int64) ([]string, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end := int64(len(data))
	if offset >= end {
		return nil, end, nil
	}
	return splitLines(data[offset:]), end, nil
}

func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	raw := bytes.Split(data, []byte{'\n'})
	if len(raw) > 0 && len(raw[len(raw)-1]) == 0 {
		raw = raw[:len(raw)-1]
	}
	lines := make([]string, 0, len(raw))
	for _, b := range raw {
		lines = append(lines, string(bytes.TrimSuffix(b, []byte{'\r'})))
	}
	return lines
}

// pollForLines re-reads from offset until a line appears, the wait budget
// runs out, or the context is canceled.
func pollForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		lines, next, err := readAfter(path, offset)
		if err != nil {
			return TailResult{Offset: offset}, err
		}
		if len(lines) > 0 {
			return TailResult{Lines: lines, Offset: next}, nil
		}
		if !time.Now().Before(deadline) {
			return TailResult{Offset: next}, nil
		}
		select {
		case <-ctx.Done():
			return TailResult{Offset: next}, ctx.Err()
		case <-ticker.C:
		}
	}
}
