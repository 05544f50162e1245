// Package http provides the HTTP transport adapter for the framework.
//
// Handlers return *respond.Draft values; the adapter installs the request
// correlation middleware, writes finalized drafts to the wire, records
// access logs, and serves the operational endpoints (/health, /metrics).
package http
