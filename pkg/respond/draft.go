package respond

import "net/http"

// Draft is an in-progress, not-yet-transmitted HTTP response. It is owned
// exclusively by the handler that builds it until it is handed to the
// transport for writing, at which point ownership transfers.
type Draft struct {
	status int
	header http.Header
	body   []byte
}

// NewDraft returns an empty draft: status 200, no headers, no body.
func NewDraft() *Draft {
	return &Draft{
		status: http.StatusOK,
		header: make(http.Header),
	}
}

// Status returns the draft's status code.
func (d *Draft) Status() int {
	return d.status
}

// SetStatus sets the draft's status code.
func (d *Draft) SetStatus(status int) {
	d.status = status
}

// Header returns the draft's header collection. Mutations are visible on the
// draft; keys are canonicalized by net/http's case-insensitive rules.
func (d *Draft) Header() http.Header {
	return d.header
}

// Body returns the draft's body bytes, or nil when no body is attached.
func (d *Draft) Body() []byte {
	return d.body
}

// SetBody attaches body bytes to the draft. The draft takes ownership of the
// slice; callers must not modify it afterwards.
func (d *Draft) SetBody(body []byte) {
	d.body = body
}
