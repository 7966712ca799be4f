package links

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// MaxLogEntries bounds the per-configuration status log; the oldest entry
// is evicted first.
const MaxLogEntries = 50

const logTimeFormat = "2006-01-02 15:04:05"

// Config is a point-in-time snapshot of a link configuration.
type Config struct {
	ID             string
	Name           string
	TargetPath     string
	Sources        []string
	Active         bool
	RescanInterval time.Duration
	Status         string
	Logs           []string
	LastRescan     time.Time
	// SessionStates maps each source to its watch session state while the
	// configuration is active.
	SessionStates map[string]string
}

// Record is the serializable shape exchanged with the persistence layer.
type Record struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	TargetPath            string   `json:"target_path"`
	Sources               []string `json:"sources"`
	IsActive              bool     `json:"is_active"`
	RescanIntervalSeconds int      `json:"rescan_interval"`
	Logs                  []string `json:"logs"`
}

// state is the mutable configuration state owned by the Manager.
type state struct {
	id             string
	name           string
	targetPath     string
	sources        []string
	active         bool
	transitioning  bool
	rescanInterval time.Duration
	status         string
	logs           []string
	lastRescan     time.Time
}

func (s *state) appendLog(now time.Time, message string) {
	s.status = message
	s.logs = append(s.logs, fmt.Sprintf("%s %s", now.Format(logTimeFormat), message))
	if overflow := len(s.logs) - MaxLogEntries; overflow > 0 {
		s.logs = s.logs[overflow:]
	}
}

func (s *state) record() Record {
	rec := Record{
		ID:                    s.id,
		Name:                  s.name,
		TargetPath:            s.targetPath,
		Sources:               append([]string{}, s.sources...),
		IsActive:              s.active,
		RescanIntervalSeconds: int(s.rescanInterval / time.Second),
		Logs:                  append([]string{}, s.logs...),
	}
	return rec
}

func (s *state) hasSource(path string) bool {
	for _, src := range s.sources {
		if samePath(src, path) {
			return true
		}
	}
	return false
}

// samePath compares two cleaned absolute paths, folding case on platforms
// whose filesystems are case-insensitive by default.
func samePath(a, b string) bool {
	if a == b {
		return true
	}
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return strings.EqualFold(a, b)
	}
	return false
}

func normalizePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	absolute, err := filepath.Abs(filepath.Clean(trimmed))
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", trimmed, err)
	}
	return absolute, nil
}
