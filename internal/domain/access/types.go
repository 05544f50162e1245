// Package access defines the access-log record written for every response
// the framework emits, and the storage contract for persisting it.
package access

import (
	"context"
	"time"
)

// Record captures one finalized response for auditing and traffic analysis.
// The request id matches the X-Request-Id header echoed to the client, so
// access rows can be correlated with client-side traces.
type Record struct {
	// Timestamp is when the response was written, in UTC.
	Timestamp time.Time `json:"ts"`
	// RequestID is the per-request correlation identifier.
	RequestID string `json:"request_id"`
	// Method is the inbound HTTP method.
	Method string `json:"method"`
	// Path is the request URL path.
	Path string `json:"path"`
	// Status is the response status code.
	Status int `json:"status"`
	// Bytes is the Content-Length accounted for the response. For HEAD
	// requests this is the length the body would have had, matching the
	// header, not the zero bytes actually written.
	Bytes uint64 `json:"bytes"`
	// DurationMS is the handler wall time in milliseconds.
	DurationMS int64 `json:"duration_ms"`
	// RemoteIP is the client IP after X-Forwarded-For / X-Real-IP resolution.
	RemoteIP string `json:"remote_ip"`
}

// Store persists access records.
type Store interface {
	// Append stores one or more records. Implementations may batch
	// internally; durability is only guaranteed after Flush.
	Append(ctx context.Context, records ...Record) error

	// Flush forces pending records to durable storage.
	Flush(ctx context.Context) error

	// Recent returns up to n of the most recent records, newest first.
	Recent(ctx context.Context, n int) ([]Record, error)

	// Close releases resources. The store is unusable afterwards.
	Close() error
}
