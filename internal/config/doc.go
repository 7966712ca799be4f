// Package config loads, validates, and normalizes the symsync TOML
// configuration.
//
// Loading applies defaults first, then overlays the file (when present), then
// expands ~ and relative paths to absolute ones. Validation failures are
// returned synchronously; a missing config file is not an error and yields
// pure defaults.
package config
