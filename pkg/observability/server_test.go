package observability_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/heropicks/pkg/observability"
)

func TestMetricsServer_ServesHandler(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "heropicks_up 1\n")
	})

	logger := slog.New(slog.DiscardHandler)
	tracer := noop.NewTracerProvider().Tracer("test")

	srv, err := observability.StartMetricsServer("127.0.0.1:0", handler, tracer, nil, logger)
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr() + observability.MetricsPath)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "heropicks_up 1\n", string(body))

	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestMetricsServer_ListenError(t *testing.T) {
	t.Parallel()

	_, err := observability.StartMetricsServer("bad-address", http.NotFoundHandler(), noop.NewTracerProvider().Tracer("test"), nil,
		slog.New(slog.DiscardHandler))
	require.Error(t, err)
}

func TestHTTPMiddleware_CapturesStatus(t *testing.T) {
	t.Parallel()

	var seen int

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		seen++
	})

	wrapped := observability.HTTPMiddleware(noop.NewTracerProvider().Tracer("test"), nil, inner)

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, observability.MetricsPath, nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 1, seen)
}
