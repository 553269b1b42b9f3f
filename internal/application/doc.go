// Package application provides application initialization and dependency wiring.
// It builds the settings registry from configuration, registers the configured
// sources, and creates the inspector router and HTTP server, keeping the main
// package focused on CLI parsing and orchestration.
package application
