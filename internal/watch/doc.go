// Package watch binds one source directory to one target directory and
// translates filesystem notifications into link operations.
//
// A Session performs the initial merge, then reacts to create, delete,
// modify, and rename events for direct children of the source root. Deeper
// events are deliberately left to the recursive merge that runs when their
// enclosing top-level directory appears, and to the periodic reconciliation
// pass. Sessions are owned by their link configuration and never registered
// globally.
package watch
