package telemetry

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestInit_Disabled(t *testing.T) {
	tel, err := Init(context.Background(), DefaultConfig(), "test", nil)
	require.NoError(t, err)
	assert.Empty(t, tel.MetricsAddr())
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestInit_MetricsEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsAddr = "127.0.0.1:0"
	tel, err := Init(context.Background(), cfg, "test", nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, tel.Shutdown(context.Background())) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + tel.MetricsAddr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestInit_TraceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.json")
	cfg := DefaultConfig()
	cfg.TraceExporter = "file"
	cfg.TraceFile = path
	tel, err := Init(context.Background(), cfg, "test", nil)
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "probe")
	span.End()
	require.NoError(t, tel.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"probe"`)
	assert.Contains(t, string(data), "seedsynth")
}

func TestInit_UnknownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "jaeger"
	_, err := Init(context.Background(), cfg, "test", nil)
	assert.ErrorIs(t, err, ErrUnknownExporter)
}
