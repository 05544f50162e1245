// Package request exposes the per-request info the response layer depends on:
// the inbound HTTP method and a stable correlation identifier.
//
// Info is placed in the request context by the transport's middleware and is
// read-only from the point of view of handlers and the respond package.
package request

import "context"

// infoContextKey is the context key type for Info.
type infoContextKey struct{}

// Info is a read-only view of the inbound request used during response
// finalization. ID is an opaque correlation identifier, stable for the
// lifetime of one inbound request and echoed back on every response.
type Info struct {
	// Method is the inbound HTTP method (GET, HEAD, POST, ...).
	Method string
	// ID is the per-request correlation identifier.
	ID string
}

// WithInfo returns a context carrying the given request info.
func WithInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, infoContextKey{}, info)
}

// FromContext retrieves the request info from the context.
// Returns the zero Info if none is present; populating the context is the
// transport's responsibility.
func FromContext(ctx context.Context) Info {
	if info, ok := ctx.Value(infoContextKey{}).(Info); ok {
		return info
	}
	return Info{}
}
