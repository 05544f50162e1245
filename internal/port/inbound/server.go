// Package inbound defines the inbound port interfaces for the framework core.
// Inbound adapters (the HTTP transport) implement these interfaces.
package inbound

import (
	"context"
)

// Server is the inbound port for a request-serving transport.
type Server interface {
	// Start begins serving requests.
	// Blocks until context is cancelled or an error occurs.
	// Returns nil on graceful shutdown, error on failure.
	Start(ctx context.Context) error

	// Close gracefully shuts down the transport and cleans up resources.
	Close() error
}
