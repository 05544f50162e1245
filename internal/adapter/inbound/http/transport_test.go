package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/palisade-http/palisade/pkg/respond"
)

// newTestTransport creates a Transport with a couple of routes for testing.
func newTestTransport(t *testing.T) *Transport {
	t.Helper()

	tr := NewTransport(
		WithAddr("127.0.0.1:0"),
		WithLogger(testLogger()),
	)

	tr.Handle("/greeting", func(ctx context.Context, r *http.Request) *respond.Draft {
		return respond.Build(ctx, http.StatusOK, &respond.Body{
			Content:     []byte("Hello, world!"),
			ContentType: respond.ContentTypeTextPlain,
		})
	})
	tr.Handle("/accepted", func(ctx context.Context, r *http.Request) *respond.Draft {
		return respond.Build(ctx, http.StatusAccepted, nil)
	})

	return tr
}

// startTestServer serves the transport's full handler chain on a random port.
func startTestServer(t *testing.T, tr *Transport) (baseURL string, cleanup func()) {
	t.Helper()

	server := httptest.NewServer(tr.Handler())
	return server.URL, server.Close
}

func TestTransport_Routing(t *testing.T) {
	tr := newTestTransport(t)
	baseURL, cleanup := startTestServer(t, tr)
	defer cleanup()

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/greeting", http.StatusOK, "Hello, world!"},
		{"/accepted", http.StatusAccepted, ""},
		{"/health", http.StatusOK, ""},
		{"/no-such-route", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(baseURL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.wantStatus)
			}
			if tt.wantBody != "" {
				body, err := io.ReadAll(resp.Body)
				if err != nil {
					t.Fatal(err)
				}
				if string(body) != tt.wantBody {
					t.Errorf("GET %s body = %q, want %q", tt.path, body, tt.wantBody)
				}
			}
		})
	}
}

func TestTransport_MetricsEndpoint(t *testing.T) {
	open := NewTransport(WithLogger(testLogger()), WithMetricsEndpoint(nil))
	baseURL, cleanup := startTestServer(t, open)
	defer cleanup()

	resp, err := http.Get(baseURL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("open /metrics status = %d, want 200", resp.StatusCode)
	}

	protected := NewTransport(WithLogger(testLogger()), WithMetricsEndpoint([]string{"sha256:abc"}))
	protURL, protCleanup := startTestServer(t, protected)
	defer protCleanup()

	resp, err = http.Get(protURL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("protected /metrics status = %d, want 401", resp.StatusCode)
	}
}

func TestTransport_MetricsDisabledByDefault(t *testing.T) {
	tr := newTestTransport(t)
	baseURL, cleanup := startTestServer(t, tr)
	defer cleanup()

	resp, err := http.Get(baseURL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("disabled /metrics status = %d, want 404", resp.StatusCode)
	}
}

func TestTransport_Options(t *testing.T) {
	tr := NewTransport(
		WithAddr("0.0.0.0:9999"),
		WithTLS("cert.pem", "key.pem"),
		WithMetricsEndpoint([]string{"sha256:abc"}),
		WithShutdownTimeout(3*time.Second),
	)

	if tr.addr != "0.0.0.0:9999" {
		t.Errorf("addr = %q, want %q", tr.addr, "0.0.0.0:9999")
	}
	if tr.certFile != "cert.pem" || tr.keyFile != "key.pem" {
		t.Errorf("TLS files = (%q, %q), want (cert.pem, key.pem)", tr.certFile, tr.keyFile)
	}
	if !tr.metricsEnabled || len(tr.metricsKeys) != 1 {
		t.Errorf("metrics = (%v, %v), want enabled with one key", tr.metricsEnabled, tr.metricsKeys)
	}
	if tr.shutdownTimeout != 3*time.Second {
		t.Errorf("shutdownTimeout = %v, want %v", tr.shutdownTimeout, 3*time.Second)
	}
}

func TestTransport_Defaults(t *testing.T) {
	tr := NewTransport()

	if tr.addr != "127.0.0.1:8080" {
		t.Errorf("default addr = %q, want %q", tr.addr, "127.0.0.1:8080")
	}
	if tr.shutdownTimeout != 10*time.Second {
		t.Errorf("default shutdownTimeout = %v, want %v", tr.shutdownTimeout, 10*time.Second)
	}
	if tr.tracerProvider == nil {
		t.Error("default tracerProvider is nil, want noop provider")
	}
	if tr.logger == nil {
		t.Error("default logger is nil")
	}
}

func TestTransport_StartAndShutdown(t *testing.T) {
	// Integration test: verify the real Start() method wires the server and
	// shuts down cleanly on context cancellation.
	tr := newTestTransport(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- tr.Start(ctx)
	}()

	// Give the server a moment to start
	time.Sleep(100 * time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return within 5 seconds after cancel")
	}
}

func TestTransport_CloseBeforeStart(t *testing.T) {
	tr := NewTransport()
	if err := tr.Close(); err != nil {
		t.Errorf("Close() before Start = %v, want nil", err)
	}
}
