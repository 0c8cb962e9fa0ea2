// Package connector contains the connectors used to pass items
// between producers and consumers.
package connector

import "context"

// Connector is the interface for a generic, closable, queue-like connector.
type Connector[T any] interface {
	// Write adds an item, waiting for space until the context is done.
	Write(ctx context.Context, item T) error
	// Read removes the oldest item, waiting for data until the context is done.
	Read(ctx context.Context) (T, error)
	// Close closes the connector. Pending items can still be read.
	Close()
}
