package respond

import (
	"context"
	"net/http"
	"testing"

	"github.com/palisade-http/palisade/pkg/request"
)

// testContext returns a context carrying request info, as the transport
// middleware would populate it.
func testContext(method, id string) context.Context {
	return request.WithInfo(context.Background(), request.Info{Method: method, ID: id})
}

func assertSecurityHeaders(t *testing.T, d *Draft, wantID string) {
	t.Helper()

	if got := d.Header().Get("X-Request-Id"); got != wantID {
		t.Errorf("X-Request-Id = %q, want %q", got, wantID)
	}
	if got := d.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := d.Header().Get("X-XSS-Protection"); got != "1; mode=block" {
		t.Errorf("X-XSS-Protection = %q, want \"1; mode=block\"", got)
	}
	if got := d.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestBuild_WithBody(t *testing.T) {
	ctx := testContext(http.MethodGet, "abc-123")
	body := []byte("Hello, world!")

	d := Build(ctx, http.StatusOK, &Body{Content: body, ContentType: "text/plain"})

	if d.Status() != http.StatusOK {
		t.Errorf("status = %d, want %d", d.Status(), http.StatusOK)
	}
	if got := d.Header().Get("Content-Length"); got != "13" {
		t.Errorf("Content-Length = %q, want \"13\"", got)
	}
	if got := d.Header().Get("Content-Type"); got != "text/plain" {
		t.Errorf("Content-Type = %q, want \"text/plain\"", got)
	}
	if string(d.Body()) != "Hello, world!" {
		t.Errorf("body = %q, want %q", d.Body(), "Hello, world!")
	}
	assertSecurityHeaders(t, d, "abc-123")
}

func TestBuild_HeadStripsBodyKeepsLength(t *testing.T) {
	ctx := testContext(http.MethodHead, "abc-123")
	body := []byte("Hello, world!")

	d := Build(ctx, http.StatusOK, &Body{Content: body, ContentType: "text/plain"})

	// Content-Length must reflect the size the body would have had.
	if got := d.Header().Get("Content-Length"); got != "13" {
		t.Errorf("Content-Length = %q, want \"13\"", got)
	}
	if got := d.Header().Get("Content-Type"); got != "text/plain" {
		t.Errorf("Content-Type = %q, want \"text/plain\"", got)
	}
	if len(d.Body()) != 0 {
		t.Errorf("HEAD response carries %d body bytes, want none", len(d.Body()))
	}
	assertSecurityHeaders(t, d, "abc-123")
}

func TestBuild_NoBody(t *testing.T) {
	ctx := testContext(http.MethodGet, "x")

	d := Build(ctx, http.StatusAccepted, nil)

	if d.Status() != http.StatusAccepted {
		t.Errorf("status = %d, want %d", d.Status(), http.StatusAccepted)
	}
	if got := d.Header().Get("Content-Length"); got != "0" {
		t.Errorf("Content-Length = %q, want \"0\"", got)
	}
	if got, ok := d.Header()["Content-Type"]; ok {
		t.Errorf("Content-Type present (%q), want unset", got)
	}
	if d.Body() != nil {
		t.Errorf("body = %q, want nil", d.Body())
	}
	assertSecurityHeaders(t, d, "x")
}

func TestBuild_StatusReflectedUnchanged(t *testing.T) {
	ctx := testContext(http.MethodGet, "id-1")

	for _, status := range []int{
		http.StatusOK,
		http.StatusCreated,
		http.StatusNoContent,
		http.StatusNotFound,
		http.StatusInternalServerError,
	} {
		d := Build(ctx, status, nil)
		if d.Status() != status {
			t.Errorf("status = %d, want %d", d.Status(), status)
		}
	}
}

func TestBuild_HeadWithoutBody(t *testing.T) {
	ctx := testContext(http.MethodHead, "id-2")

	d := Build(ctx, http.StatusOK, nil)

	if got := d.Header().Get("Content-Length"); got != "0" {
		t.Errorf("Content-Length = %q, want \"0\"", got)
	}
	if d.Body() != nil {
		t.Errorf("body = %q, want nil", d.Body())
	}
}

func TestBuild_EmptyBodySetsZeroLengthAndType(t *testing.T) {
	ctx := testContext(http.MethodGet, "id-3")

	d := Build(ctx, http.StatusOK, &Body{Content: []byte{}, ContentType: "application/json"})

	if got := d.Header().Get("Content-Length"); got != "0" {
		t.Errorf("Content-Length = %q, want \"0\"", got)
	}
	// A body pair was supplied, so Content-Type is set even for zero bytes.
	if got := d.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want \"application/json\"", got)
	}
}

func TestExtend_OnExistingDraft(t *testing.T) {
	ctx := testContext(http.MethodPost, "post-1")

	d := NewDraft()
	d.Header().Set("X-Custom", "kept")
	Extend(ctx, d, http.StatusCreated, &Body{Content: []byte(`{"ok":true}`), ContentType: "application/json"})

	if d.Status() != http.StatusCreated {
		t.Errorf("status = %d, want %d", d.Status(), http.StatusCreated)
	}
	if got := d.Header().Get("X-Custom"); got != "kept" {
		t.Errorf("pre-existing header lost, X-Custom = %q", got)
	}
	if got := d.Header().Get("Content-Length"); got != "11" {
		t.Errorf("Content-Length = %q, want \"11\"", got)
	}
	if string(d.Body()) != `{"ok":true}` {
		t.Errorf("body = %q", d.Body())
	}
	assertSecurityHeaders(t, d, "post-1")
}

func TestExtend_OverridesCallerSuppliedSecurityHeaders(t *testing.T) {
	ctx := testContext(http.MethodGet, "real-id")

	d := NewDraft()
	d.Header().Set("X-Request-Id", "spoofed")
	d.Header().Set("X-Frame-Options", "ALLOWALL")
	Extend(ctx, d, http.StatusOK, nil)

	assertSecurityHeaders(t, d, "real-id")
	if got := d.Header().Values("X-Frame-Options"); len(got) != 1 {
		t.Errorf("X-Frame-Options has %d values, want exactly 1", len(got))
	}
}

func TestApplyHeaders_ExplicitLength(t *testing.T) {
	ctx := testContext(http.MethodGet, "low-level")

	d := NewDraft()
	ApplyHeaders(ctx, d, "application/octet-stream", 4096)

	if got := d.Header().Get("Content-Length"); got != "4096" {
		t.Errorf("Content-Length = %q, want \"4096\"", got)
	}
	if got := d.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	assertSecurityHeaders(t, d, "low-level")
}

func TestApplyHeaders_NoTypeNoLength(t *testing.T) {
	ctx := testContext(http.MethodGet, "low-level-2")

	d := NewDraft()
	ApplyHeaders(ctx, d, "", 0)

	if got := d.Header().Get("Content-Length"); got != "0" {
		t.Errorf("Content-Length = %q, want \"0\"", got)
	}
	if got, ok := d.Header()["Content-Type"]; ok {
		t.Errorf("Content-Type present (%q), want unset", got)
	}
	if got := d.Header().Values("Content-Length"); len(got) != 1 {
		t.Errorf("Content-Length has %d values, want exactly 1", len(got))
	}
}

func TestStripBodyForHead(t *testing.T) {
	body := []byte("payload")

	if got := stripBodyForHead(http.MethodHead, body); got != nil {
		t.Errorf("HEAD: got %q, want nil", got)
	}
	for _, method := range []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodDelete, http.MethodOptions, http.MethodPatch,
	} {
		if got := stripBodyForHead(method, body); string(got) != "payload" {
			t.Errorf("%s: got %q, want %q", method, got, body)
		}
	}
}
