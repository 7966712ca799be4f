// Package mirror implements the merge engine that reconciles a target
// directory with a source directory using symlinks.
//
// Merge is idempotent: it links items missing from the target, recurses into
// directories present on both sides, and skips everything else with a status
// report. Re-running it on an already-mirrored tree creates nothing, which
// makes it safe for both the initial sync and the periodic reconciliation
// pass, including when the two race against live watch sessions.
package mirror
