// Package config loads the runtime configuration of forge-settings from
// multiple sources (YAML files, environment variables, CLI flags) with
// precedence: CLI flags > YAML config > Environment variables > Defaults.
// It tells the resolver where the application root and site directory live
// and configures the HTTP server.
package config
