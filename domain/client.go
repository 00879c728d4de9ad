package domain

import "context"

// Client is one connected session as seen by the hub. The transport layer
// owns the underlying connection; the hub only references it.
type Client interface {
	// ID returns the session identifier assigned at connect time.
	ID() string

	// Send delivers a text frame to the client. It must not block past ctx.
	Send(ctx context.Context, message []byte) error

	// Close tears down the transport. Safe to call more than once.
	Close() error
}
