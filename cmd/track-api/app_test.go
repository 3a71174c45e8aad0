package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/registry"
	"github.com/BearBump/ShipTrack/internal/services/resolver"
	"github.com/BearBump/ShipTrack/internal/services/tracker"
	"github.com/stretchr/testify/require"
)

type blockingConsumer struct{}

func (blockingConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func writeSwaggerStub(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "swagger.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"openapi":"3.0.0"}`), 0o600))
	return p
}

func TestRunTrackAPI_ServesAndShutsDown(t *testing.T) {
	// Без переменных окружения оба oauth-провайдера падают в mock fallback,
	// так что сервер полностью офлайновый.
	reg := registry.New(registry.WithCredentials(func(carriers.Code) carriers.Credentials {
		return carriers.Credentials{}
	}))
	svc := tracker.New(resolver.New(reg), nil, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runTrackAPI(ctx, trackAPIOpts{
			httpAddr:    "127.0.0.1:0",
			swaggerPath: writeSwaggerStub(t),
			topic:       "tracking.resolved",
			onListen:    func(a string) { addrCh <- a },
		}, svc, blockingConsumer{})
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-errCh:
		t.Fatalf("server did not start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for listen")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/api/track/1Z999AA1234567890")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Success bool `json:"success"`
		Data    struct {
			Carrier string `json:"carrier"`
			Status  string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.True(t, out.Success)
	require.Equal(t, "UPS", out.Data.Carrier)
	require.Equal(t, "IN_TRANSIT", out.Data.Status)

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for shutdown")
	}
}

func TestRunTrackAPI_RequiresSwaggerPath(t *testing.T) {
	err := runTrackAPI(context.Background(), trackAPIOpts{httpAddr: "127.0.0.1:0"}, nil, blockingConsumer{})
	require.Error(t, err)
}
