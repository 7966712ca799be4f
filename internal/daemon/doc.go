// Package daemon wires the engine together: it enforces single-instance
// execution, verifies the host can create links at all, restores persisted
// link configurations, and runs the reconciliation loop until shutdown.
package daemon
