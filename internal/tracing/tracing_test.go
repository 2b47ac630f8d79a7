package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu    sync.Mutex
	paths []string
}

func newCollector(t *testing.T) (*collector, *httptest.Server) {
	t.Helper()
	c := &collector{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.paths = append(c.paths, r.URL.Path)
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return c, srv
}

func (c *collector) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func TestInitDisabled(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	Init(context.Background(), "test")

	assert.Nil(t, provider.Load())
	Flush(context.Background())
	assert.NoError(t, Shutdown(context.Background()))
}

func TestFlushExportsSpans(t *testing.T) {
	tests := []struct {
		name     string
		endpoint func(srv *httptest.Server) string
		insecure string
		wantPath string
	}{
		{
			name:     "base url",
			endpoint: func(srv *httptest.Server) string { return srv.URL },
			wantPath: "/v1/traces",
		},
		{
			name:     "base url with path",
			endpoint: func(srv *httptest.Server) string { return srv.URL + "/otlp/" },
			wantPath: "/otlp/v1/traces",
		},
		{
			name:     "host and port",
			endpoint: func(srv *httptest.Server) string { return strings.TrimPrefix(srv.URL, "http://") },
			insecure: "true",
			wantPath: "/v1/traces",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := newCollector(t)
			t.Setenv("OTEL_ENABLED", "true")
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", tt.endpoint(srv))
			t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", tt.insecure)
			t.Cleanup(func() { _ = Shutdown(context.Background()) })

			Init(context.Background(), "test")
			require.NotNil(t, provider.Load())

			_, span := Tracer().Start(context.Background(), "DeleteDocument")
			span.End()
			assert.Empty(t, c.received(), "spans are batched until flushed")

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			Flush(ctx)
			assert.Equal(t, []string{tt.wantPath}, c.received())
		})
	}
}

func TestExporterOptionsRejectsBadURL(t *testing.T) {
	for _, endpoint := range []string{"http://", "http://[::1"} {
		_, err := exporterOptions(endpoint, false)
		assert.Error(t, err, endpoint)
	}

	opts, err := exporterOptions("collector:4318", true)
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}
