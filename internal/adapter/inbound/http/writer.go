package http

import (
	"net/http"

	"github.com/palisade-http/palisade/pkg/respond"
)

// writeDraft transfers a finalized draft to the wire. Ownership of the draft
// passes to the transport here; callers must not touch it afterwards.
//
// The draft's headers are copied verbatim, including the explicit
// Content-Length the finalization layer computed. net/http honors a
// pre-declared Content-Length that matches the bytes written, and for HEAD
// responses sends the header while the (already stripped) body stays empty.
func writeDraft(w http.ResponseWriter, d *respond.Draft) error {
	dst := w.Header()
	for name, values := range d.Header() {
		dst[name] = values
	}

	w.WriteHeader(d.Status())

	if len(d.Body()) > 0 {
		if _, err := w.Write(d.Body()); err != nil {
			return err
		}
	}
	return nil
}
