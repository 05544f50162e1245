package respond

// Header names set by ApplyHeaders on every response.
const (
	HeaderContentLength      = "Content-Length"
	HeaderContentType        = "Content-Type"
	HeaderRequestID          = "X-Request-Id"
	HeaderFrameOptions       = "X-Frame-Options"
	HeaderXSSProtection      = "X-Xss-Protection"
	HeaderContentTypeOptions = "X-Content-Type-Options"
)

// Fixed, framework-mandated values for the security headers. These are not
// customizable per route; every response path inherits the same baseline.
const (
	frameOptionsDeny   = "DENY"
	xssProtectionBlock = "1; mode=block"
	noSniff            = "nosniff"
)

// Common content-type labels for handler convenience. The label is sent
// verbatim; append a charset parameter where one matters.
const (
	ContentTypeTextPlain   = "text/plain"
	ContentTypeTextHTML    = "text/html; charset=utf-8"
	ContentTypeJSON        = "application/json"
	ContentTypeOctetStream = "application/octet-stream"
)
