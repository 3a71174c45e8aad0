package refresher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	numbers []string
	err     error
}

func (f *fakeRepo) DueTrackingNumbers(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	return f.numbers, f.err
}

type fakeResolver struct {
	out *models.TrackingInfo
	err error
}

func (f *fakeResolver) Track(ctx context.Context, raw string) (*models.TrackingInfo, error) {
	return f.out, f.err
}

type fakeProducer struct {
	topic string
	key   []byte
	value []byte
	calls int
	err   error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.calls++
	p.topic, p.key, p.value = topic, key, value
	return p.err
}

type fakeRL struct {
	allowed bool
	count   int64
	err     error
}

func (r fakeRL) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	return r.allowed, r.count, r.err
}

func TestRefresher_processOne_okPublishes(t *testing.T) {
	now := time.Now().UTC()
	loc := "Memphis, TN"
	fp := &fakeProducer{}
	r := New(nil, &fakeResolver{
		out: &models.TrackingInfo{
			TrackingNumber: "1Z999AA1234567890",
			Carrier:        "UPS",
			Status:         models.TrackingStatusInTransit,
			Location:       &loc,
			Timestamp:      now,
			Events: []models.TrackingEvent{
				{Status: "In Transit", Location: &loc, Timestamp: now},
			},
		},
	}, fp, fakeRL{allowed: true}, "tracking.resolved")

	require.NoError(t, r.processOne(context.Background(), "1Z999AA1234567890"))
	require.Equal(t, 1, fp.calls)
	require.Equal(t, "tracking.resolved", fp.topic)
	require.Equal(t, []byte("1Z999AA1234567890"), fp.key)

	var msg messages.TrackingResolved
	require.NoError(t, json.Unmarshal(fp.value, &msg))
	require.Equal(t, "UPS", msg.Carrier)
	require.Equal(t, models.TrackingStatusInTransit, msg.Status)
	require.Len(t, msg.Events, 1)
	require.Nil(t, msg.Error)
}

func TestRefresher_processOne_resolverErrorStillPublishes(t *testing.T) {
	fp := &fakeProducer{}
	r := New(nil, &fakeResolver{err: errors.New("unsupported carrier")}, fp, nil, "tracking.resolved")

	require.NoError(t, r.processOne(context.Background(), "INVALID123"))
	require.Equal(t, 1, fp.calls)

	var msg messages.TrackingResolved
	require.NoError(t, json.Unmarshal(fp.value, &msg))
	require.NotNil(t, msg.Error)
	require.Empty(t, msg.Status)
}

func TestRefresher_runOnce_countsClaimed(t *testing.T) {
	fp := &fakeProducer{}
	r := New(&fakeRepo{numbers: []string{"1Z999AA1234567890", "123456789012"}},
		&fakeResolver{out: &models.TrackingInfo{TrackingNumber: "x", Carrier: "UPS"}},
		fp, nil, "tracking.resolved")

	r.runOnce(context.Background())
	st := r.Stats()
	require.Equal(t, int64(2), st.TotalClaimed)
	require.Equal(t, int64(2), st.TotalProcessed)
	require.Equal(t, int64(0), st.TotalErrors)
	require.NotNil(t, st.LastCycleAt)
}

func TestRefresher_runOnce_repoError(t *testing.T) {
	r := New(&fakeRepo{err: errors.New("pg down")}, &fakeResolver{}, &fakeProducer{}, nil, "t")
	r.runOnce(context.Background())
	require.Equal(t, "pg down", r.Stats().LastError)
}

func TestRefresher_WithSettings(t *testing.T) {
	r := New(nil, &fakeResolver{}, &fakeProducer{}, nil, "t").
		WithSettings(5*time.Second, 7, 9, 11*time.Minute, 13)
	require.Equal(t, 5*time.Second, r.pollInterval)
	require.Equal(t, 7, r.batchSize)
	require.Equal(t, 9, r.concurrency)
	require.Equal(t, 11*time.Minute, r.staleness)
	require.Equal(t, int64(13), r.rateLimitPerMinute)
}

func TestRefresher_Run_ContextCanceled(t *testing.T) {
	r := New(&fakeRepo{}, &fakeResolver{}, &fakeProducer{}, nil, "t")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, r.Run(ctx), context.Canceled)
}

func TestRefresher_Trigger_NonBlocking(t *testing.T) {
	r := New(&fakeRepo{}, &fakeResolver{}, &fakeProducer{}, nil, "t")
	r.Trigger()
	r.Trigger() // second trigger while the first is pending must not block
	require.NotNil(t, r.Stats().LastTriggerAt)
}
