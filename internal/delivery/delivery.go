// Package delivery holds the transports that expose the application.
package delivery

import "context"

// Delivery is a long-running listener started by the process entry point.
type Delivery interface {
	// Serve blocks until the listener stops.
	Serve(ctx context.Context) error
}
