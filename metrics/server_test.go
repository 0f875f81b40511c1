package metrics

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_CreatesServerWithAddress(t *testing.T) {
	server := NewServer(":9999")

	assert.NotNil(t, server)
	assert.Equal(t, ":9999", server.Addr())
	assert.NotZero(t, server.server.ReadHeaderTimeout)
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := NewServer("localhost:0")
	require.NoError(t, server.Start())

	addr := server.Addr()
	assert.NotEqual(t, "localhost:0", addr)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	_ = resp.Body.Close()

	assert.NoError(t, server.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	_, err = http.Get("http://" + addr + "/metrics")
	assert.Error(t, err)
}

func TestServer_StartFailsOnBoundAddress(t *testing.T) {
	first := NewServer("localhost:0")
	require.NoError(t, first.Start())
	defer func() {
		_ = first.Shutdown(context.Background())
	}()

	second := NewServer(first.Addr())
	assert.Error(t, second.Start())
}
