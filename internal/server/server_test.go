package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	h := NewRouter(Deps{Repo: &stubQuerier{one: []string{"1, Alice"}}, Health: &stubHealth{}})
	srv := New(Config{ShutdownTimeout: time.Second}, h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/one")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "[1, Alice]", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_RunBadAddress(t *testing.T) {
	srv := New(Config{Addr: "256.0.0.1:-1"}, http.NotFoundHandler(), nil)
	assert.Error(t, srv.Run(context.Background()))
}
