package refresher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	DueTrackingNumbers(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

type Resolver interface {
	Track(ctx context.Context, rawTrackingNumber string) (*models.TrackingInfo, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Refresher periodically re-resolves stale tracking numbers and publishes
// the results to kafka for the API side to consume.
type Refresher struct {
	repo     Repository
	resolver Resolver
	producer Producer
	rl       RateLimiter

	topic string

	pollInterval       time.Duration
	batchSize          int
	concurrency        int
	staleness          time.Duration
	rateLimitPerMinute int64

	carrierRateLimits map[carriers.Code]int64

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalProcessed      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, resolver Resolver, producer Producer, rl RateLimiter, topic string) *Refresher {
	return &Refresher{
		repo: repo, resolver: resolver, producer: producer, rl: rl, topic: topic,
		pollInterval:       30 * time.Second,
		batchSize:          50,
		concurrency:        5,
		staleness:          15 * time.Minute,
		rateLimitPerMinute: 60,
		carrierRateLimits:  map[carriers.Code]int64{},
		triggerCh:          make(chan struct{}, 1),
		startedAtUnixNano:  time.Now().UTC().UnixNano(),
	}
}

func (r *Refresher) WithSettings(pollInterval time.Duration, batchSize, concurrency int, staleness time.Duration, rlPerMin int64) *Refresher {
	if pollInterval > 0 {
		r.pollInterval = pollInterval
	}
	if batchSize > 0 {
		r.batchSize = batchSize
	}
	if concurrency > 0 {
		r.concurrency = concurrency
	}
	if staleness > 0 {
		r.staleness = staleness
	}
	if rlPerMin > 0 {
		r.rateLimitPerMinute = rlPerMin
	}
	return r
}

func (r *Refresher) WithCarrierRateLimits(upsPerMin, fedexPerMin, uspsPerMin int) *Refresher {
	if upsPerMin > 0 {
		r.carrierRateLimits[carriers.UPS] = int64(upsPerMin)
	}
	if fedexPerMin > 0 {
		r.carrierRateLimits[carriers.FedEx] = int64(fedexPerMin)
	}
	if uspsPerMin > 0 {
		r.carrierRateLimits[carriers.USPS] = int64(uspsPerMin)
	}
	return r
}

// Trigger forces an immediate refresh cycle (best-effort, non-blocking).
func (r *Refresher) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed   int64      `json:"totalClaimed"`
	TotalProcessed int64      `json:"totalProcessed"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (r *Refresher) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalClaimed:   r.totalClaimed.Load(),
		TotalProcessed: r.totalProcessed.Load(),
		TotalErrors:    r.totalErrors.Load(),
		InFlight:       r.inFlight.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

func (r *Refresher) Run(ctx context.Context) error {
	t := time.NewTicker(r.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		}
	}
}

func (r *Refresher) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	r.lastCycleUnixNano.Store(now.UnixNano())

	numbers, err := r.repo.DueTrackingNumbers(ctx, now.Add(-r.staleness), r.batchSize)
	if err != nil {
		slog.Error("select due tracking numbers", "error", err.Error())
		r.setLastError(err)
		return
	}
	r.totalClaimed.Add(int64(len(numbers)))

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	for _, n := range numbers {
		sem <- struct{}{}
		wg.Add(1)
		num := n
		r.inFlight.Add(1)
		go func() {
			defer func() {
				r.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := r.processOne(ctx, num); err != nil {
				r.totalErrors.Add(1)
				r.setLastError(err)
				slog.Error("refresh tracking", "trackingNumber", num, "error", err.Error())
			}
			r.totalProcessed.Add(1)
		}()
	}
	wg.Wait()
}

func (r *Refresher) setLastError(err error) {
	r.lastErrorMu.Lock()
	r.lastError = err.Error()
	r.lastErrorMu.Unlock()
}

func (r *Refresher) processOne(ctx context.Context, trackingNumber string) error {
	now := time.Now().UTC()

	code, _ := carriers.Detect(trackingNumber)
	if r.rl != nil && r.rateLimitPerMinute > 0 {
		limit := r.rateLimitPerMinute
		if perCarrier, ok := r.carrierRateLimits[code]; ok {
			limit = perCarrier
		}

		minuteKey := fmt.Sprintf("rl:carrier:%s:%s", code, now.Format("200601021504"))
		allowed, n, err := r.rl.Allow(ctx, minuteKey, limit, 70*time.Second)
		if err != nil {
			return err
		}
		if !allowed {
			// Слишком много запросов в минуту: подождём немного, чтобы разгрузить источник.
			slog.Warn("rate limit exceeded", "carrier", string(code), "count", n)
			time.Sleep(500 * time.Millisecond)
		}
	}

	info, err := r.resolver.Track(ctx, trackingNumber)
	msg := messages.TrackingResolved{
		TrackingNumber: trackingNumber,
		CheckedAt:      now,
	}

	if err != nil {
		e := err.Error()
		msg.Error = &e
		msg.Carrier = string(code)
	} else {
		msg.Carrier = info.Carrier
		msg.Status = info.Status
		msg.Location = info.Location
		msg.Description = info.Description
		ts := info.Timestamp
		msg.StatusAt = &ts
		for _, e := range info.Events {
			msg.Events = append(msg.Events, messages.TrackingEvent{
				Status:      e.Status,
				EventTime:   e.Timestamp,
				Location:    e.Location,
				Description: e.Description,
			})
		}
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal kafka msg")
	}

	// Kafka может быть не готова сразу после старта docker compose.
	// Для устойчивости делаем небольшой retry.
	var pubErr error
	for i := 0; i < 10; i++ {
		if err := r.producer.Publish(ctx, r.topic, []byte(trackingNumber), b); err == nil {
			pubErr = nil
			break
		} else {
			pubErr = err
			time.Sleep(time.Duration(150*(i+1)) * time.Millisecond)
		}
	}
	return pubErr
}
