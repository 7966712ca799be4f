// Package ipc exposes daemon control over JSON-RPC on a Unix domain
// socket. The CLI is the primary consumer; the request and response types
// are the stable surface between the two binaries.
package ipc
