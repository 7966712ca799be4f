package links

import "errors"

var (
	// ErrNotFound indicates the configuration id is unknown.
	ErrNotFound = errors.New("link configuration not found")
	// ErrActive indicates a mutation that requires the configuration to be
	// stopped first.
	ErrActive = errors.New("link configuration is active")
	// ErrNotActive indicates a stop on an inactive configuration.
	ErrNotActive = errors.New("link configuration is not active")
	// ErrTransitioning indicates a concurrent start or stop is in flight.
	ErrTransitioning = errors.New("link configuration is busy")
	// ErrTargetInUse indicates the target directory is claimed by another
	// active configuration.
	ErrTargetInUse = errors.New("target directory already used by an active configuration")
	// ErrDuplicateSource indicates the source is already part of the
	// configuration.
	ErrDuplicateSource = errors.New("source directory already configured")
	// ErrSourceIsTarget indicates source and target paths coincide.
	ErrSourceIsTarget = errors.New("source directory equals the target directory")
	// ErrUnknownSource indicates the source is not part of the configuration.
	ErrUnknownSource = errors.New("source directory not part of the configuration")
	// ErrNoTarget indicates a start without a configured target.
	ErrNoTarget = errors.New("no target directory configured")
	// ErrNoSources indicates a start without any configured sources.
	ErrNoSources = errors.New("no source directories configured")
)
