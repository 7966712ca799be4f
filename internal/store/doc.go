// Package store persists link configurations in SQLite.
//
// The database is the authoritative record across daemon restarts: every
// configuration mutation is written through, and the daemon replays the
// stored records at startup, re-activating the ones that were running.
// Schema changes are shipped as ordered migration files; the store applies
// missing migrations on open.
package store
