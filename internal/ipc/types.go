package ipc

import (
	"time"

	"symsync/internal/links"
)

// LinkConfig is the wire representation of a link configuration.
type LinkConfig struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	TargetPath     string            `json:"target_path"`
	Sources        []string          `json:"sources"`
	Active         bool              `json:"active"`
	RescanInterval int               `json:"rescan_interval"`
	Status         string            `json:"status"`
	SessionStates  map[string]string `json:"session_states,omitempty"`
}

func fromConfig(cfg links.Config) LinkConfig {
	return LinkConfig{
		ID:             cfg.ID,
		Name:           cfg.Name,
		TargetPath:     cfg.TargetPath,
		Sources:        cfg.Sources,
		Active:         cfg.Active,
		RescanInterval: int(cfg.RescanInterval / time.Second),
		Status:         cfg.Status,
		SessionStates:  cfg.SessionStates,
	}
}

// PingRequest checks daemon liveness.
type PingRequest struct{}

// PingResponse reports the responding daemon process.
type PingResponse struct {
	PID int `json:"pid"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	DatabasePath string       `json:"database_path"`
	LockPath     string       `json:"lock_path"`
	SocketPath   string       `json:"socket_path"`
	LogPath      string       `json:"log_path"`
	Configs      []LinkConfig `json:"configs"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges the shutdown request.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}

// LinkCreateRequest registers a new configuration.
type LinkCreateRequest struct {
	Name string `json:"name"`
}

// LinkCreateResponse returns the created configuration.
type LinkCreateResponse struct {
	Config LinkConfig `json:"config"`
}

// LinkListRequest lists all configurations.
type LinkListRequest struct{}

// LinkListResponse contains all configurations.
type LinkListResponse struct {
	Configs []LinkConfig `json:"configs"`
}

// LinkShowRequest fetches a single configuration by id.
type LinkShowRequest struct {
	ID string `json:"id"`
}

// LinkShowResponse contains a single configuration.
type LinkShowResponse struct {
	Config LinkConfig `json:"config"`
}

// LinkRenameRequest changes a configuration's display name.
type LinkRenameRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LinkRenameResponse acknowledges the rename.
type LinkRenameResponse struct{}

// LinkSetTargetRequest points a stopped configuration at a target
// directory.
type LinkSetTargetRequest struct {
	ID     string `json:"id"`
	Target string `json:"target"`
}

// LinkSetTargetResponse acknowledges the target change.
type LinkSetTargetResponse struct{}

// LinkSetIntervalRequest adjusts the reconciliation interval.
type LinkSetIntervalRequest struct {
	ID      string `json:"id"`
	Seconds int    `json:"seconds"`
}

// LinkSetIntervalResponse acknowledges the interval change.
type LinkSetIntervalResponse struct{}

// LinkAddSourceRequest attaches a source directory.
type LinkAddSourceRequest struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

// LinkAddSourceResponse acknowledges the addition.
type LinkAddSourceResponse struct{}

// LinkRemoveSourceRequest detaches a source directory.
type LinkRemoveSourceRequest struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	RemoveLinks bool   `json:"remove_links"`
}

// LinkRemoveSourceResponse acknowledges the removal.
type LinkRemoveSourceResponse struct{}

// LinkStartRequest activates a configuration.
type LinkStartRequest struct {
	ID string `json:"id"`
}

// LinkStartResponse returns the configuration after activation.
type LinkStartResponse struct {
	Config LinkConfig `json:"config"`
}

// LinkStopRequest deactivates a configuration.
type LinkStopRequest struct {
	ID string `json:"id"`
}

// LinkStopResponse acknowledges the stop.
type LinkStopResponse struct{}

// LinkDeleteRequest removes a configuration.
type LinkDeleteRequest struct {
	ID          string `json:"id"`
	RemoveLinks bool   `json:"remove_links"`
}

// LinkDeleteResponse acknowledges the delete.
type LinkDeleteResponse struct{}

// LinkLogsRequest fetches a configuration's status log.
type LinkLogsRequest struct {
	ID string `json:"id"`
}

// LinkLogsResponse contains the bounded status log, oldest first.
type LinkLogsResponse struct {
	Logs []string `json:"logs"`
}

// LogTailRequest fetches daemon log lines based on offset and follow
// semantics. A negative offset tails the last Limit lines.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// RescanRequest forces an immediate reconciliation pass for one
// configuration.
type RescanRequest struct {
	ID string `json:"id"`
}

// RescanResponse acknowledges the rescan.
type RescanResponse struct{}
