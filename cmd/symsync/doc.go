// Command symsync is the CLI for the symsync daemon. It manages the daemon
// process lifecycle and drives link configurations over the daemon's Unix
// socket.
package main
