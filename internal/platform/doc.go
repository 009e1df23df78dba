// Package platform holds OS-specific process handling behind a portable
// API. Every external invocation is re-prioritized through it so
// transfers never starve the host.
package platform
