// Package config loads runtime configuration of the settingstree binary from
// multiple sources (YAML files, environment variables, CLI flags) with
// precedence: CLI flags > YAML config > Environment variables > Defaults.
// It decides which settings files are registered under which group and the
// initial active environment.
package config
