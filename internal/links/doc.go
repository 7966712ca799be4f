// Package links owns link configurations: named sets of source directories
// mirrored into a single target directory.
//
// The Manager is the synchronous API surface for creating, mutating,
// starting, and stopping configurations. Each active (configuration, source)
// pair owns a watch session; the Rescanner periodically re-runs the merge
// engine to heal drift that the live sessions cannot see. All shared state
// is guarded by the manager's mutex; sessions and rescans report progress
// through the per-configuration status log.
package links
