package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  tracking_resolved_topic_name: "tracking.resolved"
redis:
  host: "localhost"
  port: 6379
shiptrack:
  http_addr: ":8080"
  kafka_consumer_group: "track-api"
  current_status_ttl_seconds: 600
  worker_staleness_seconds: 900
  worker_rate_limit_usps_per_minute: 30
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "tracking.resolved", cfg.Kafka.TrackingResolvedTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.ShipTrack.HTTPAddr)
	require.Equal(t, 900, cfg.ShipTrack.WorkerStalenessSeconds)
	require.Equal(t, 30, cfg.ShipTrack.WorkerRateLimitUSPSPerMinute)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/cfg.yaml")
	require.Error(t, err)
}
