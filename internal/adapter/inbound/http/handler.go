package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/palisade-http/palisade/internal/domain/access"
	"github.com/palisade-http/palisade/internal/service"
	"github.com/palisade-http/palisade/pkg/request"
	"github.com/palisade-http/palisade/pkg/respond"
)

// HandlerFunc is the framework handler signature: compute a response draft
// from the request. Handlers use respond.Build (or respond.Extend on a draft
// they allocated themselves) so every returned draft carries the standard
// header baseline.
type HandlerFunc func(ctx context.Context, r *http.Request) *respond.Draft

// draftHandler bridges a HandlerFunc onto net/http: it invokes the handler,
// writes the finalized draft to the wire, and records an access entry.
type draftHandler struct {
	handle HandlerFunc
	access *service.AccessService // nil disables access logging
}

func (h *draftHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	draft := h.handle(ctx, r)
	if draft == nil {
		// A nil draft is a handler bug; the fallback response still goes
		// through the standard finalization path.
		LoggerFromContext(ctx).Error("handler returned nil draft", "path", r.URL.Path)
		draft = respond.Build(ctx, http.StatusInternalServerError, nil)
	}

	if err := writeDraft(w, draft); err != nil {
		LoggerFromContext(ctx).Warn("failed to write response", "error", err)
	}

	if h.access != nil {
		h.access.Record(access.Record{
			Timestamp:  time.Now().UTC(),
			RequestID:  request.FromContext(ctx).ID,
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     draft.Status(),
			Bytes:      draftContentLength(draft),
			DurationMS: time.Since(start).Milliseconds(),
			RemoteIP:   ClientIPFromContext(ctx),
		})
	}
}

// draftContentLength reads the accounted Content-Length off the draft. For
// HEAD responses this is the length the body would have had, which is what
// the access log should report.
func draftContentLength(d *respond.Draft) uint64 {
	n, err := strconv.ParseUint(d.Header().Get(respond.HeaderContentLength), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
