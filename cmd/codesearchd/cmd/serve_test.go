package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/codesearch/internal/storemgr"
)

func TestRunServeListensAndShutsDownOnCancel(t *testing.T) {
	t.Setenv("DATA_ROOT", t.TempDir())
	t.Setenv("EMBED_PROVIDER", "static")
	t.Setenv("LISTEN_ADDR", "127.0.0.1:0")
	t.Setenv("ADMIN_ADDR", "")
	t.Setenv("STORE_NAME", "test-store")
	t.Setenv("WATCH_DIR", "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runServe(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not return after context cancellation")
	}
}

func TestNewAdminServerHealthz(t *testing.T) {
	var stores *storemgr.Manager
	srv := newAdminServer("127.0.0.1:0", stores, slog.Default())
	require.NotNil(t, srv)
	require.Equal(t, "127.0.0.1:0", srv.Addr)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
