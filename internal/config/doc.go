// Package config loads and validates launcher configuration.
//
// Configuration is read from `launcher.yaml` (current directory, `config/`,
// or next to the executable) and can be overridden via `OL_`-prefixed
// environment variables (see `internal/config/config.go` for keys).
package config
