// Package application wires the settings resolver, override loader, HTTP
// handlers and server together, keeping the main package focused on CLI
// parsing and orchestration.
package application
