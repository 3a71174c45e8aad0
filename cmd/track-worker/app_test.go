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

	"github.com/BearBump/ShipTrack/config"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/services/refresher"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct{}

func (fakeRepo) DueTrackingNumbers(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	return nil, nil
}

type fakeResolver struct{}

func (fakeResolver) Track(ctx context.Context, raw string) (*models.TrackingInfo, error) {
	return &models.TrackingInfo{TrackingNumber: raw, Carrier: "UPS"}, nil
}

type noopProducer struct{}

func (noopProducer) Publish(ctx context.Context, topic string, key, value []byte) error { return nil }

func TestDefaultWorkerFactories_NonNil(t *testing.T) {
	f := defaultWorkerFactories()
	cfg := &config.Config{
		Kafka: config.KafkaConfig{Host: "localhost", Port: 9092},
		Redis: config.RedisConfig{Host: "localhost", Port: 6379},
	}
	require.NotNil(t, f.newProducer(cfg))
	require.NotNil(t, f.newRateLimiter(cfg))
	require.NotNil(t, f.newResolver(cfg))
}

func TestRunTrackWorker_ContextCanceled(t *testing.T) {
	calledClose := false

	f := workerFactories{
		newStorage: func(cfg *config.Config) (refresher.Repository, func(), error) {
			return fakeRepo{}, func() { calledClose = true }, nil
		},
		newProducer: func(cfg *config.Config) refresher.Producer {
			return noopProducer{}
		},
		newRateLimiter: func(cfg *config.Config) refresher.RateLimiter {
			return nil
		},
		newResolver: func(cfg *config.Config) refresher.Resolver {
			return fakeResolver{}
		},
	}

	cfg := &config.Config{
		Kafka:     config.KafkaConfig{TrackingResolvedTopicName: "t"},
		ShipTrack: config.ShipTrackConfig{WorkerPollIntervalSeconds: 1},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunTrackWorker(ctx, cfg, f)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, calledClose)
}

func TestRunWorkerHTTPServer_Endpoints(t *testing.T) {
	swagger := filepath.Join(t.TempDir(), "swagger.json")
	require.NoError(t, os.WriteFile(swagger, []byte(`{"openapi":"3.0.0"}`), 0o600))

	r := refresher.New(fakeRepo{}, fakeResolver{}, noopProducer{}, nil, "t")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:    "127.0.0.1:0",
			swaggerPath: swagger,
			onListen:    func(a string) { addrCh <- a },
			refresher:   r,
			cfg:         &config.Config{},
		})
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

	resp, err = http.Post("http://"+addr+"/trigger", "application/json", nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Contains(t, string(body), `"triggered":true`)

	resp, err = http.Get("http://" + addr + "/stats")
	require.NoError(t, err)
	var st refresher.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	_ = resp.Body.Close()
	require.NotNil(t, st.LastTriggerAt)
}
