package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
)

type Resolver interface {
	Track(ctx context.Context, rawTrackingNumber string) (*models.TrackingInfo, error)
	SupportedCarriers(ctx context.Context) []carriers.Code
}

type History interface {
	Append(ctx context.Context, userID *string, info *models.TrackingInfo) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.HistoryRecord, error)
}

type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Service is the request-path facade: resolve, cache the current state,
// persist one history row per lookup. Cache and history are best-effort,
// a failing redis or postgres never fails the lookup itself.
type Service struct {
	resolver   Resolver
	history    History
	cache      BytesCache
	currentTTL time.Duration
}

func New(resolver Resolver, history History, cache BytesCache, currentTTL time.Duration) *Service {
	return &Service{resolver: resolver, history: history, cache: cache, currentTTL: currentTTL}
}

func (s *Service) Track(ctx context.Context, rawTrackingNumber string, userID *string) (*models.TrackingInfo, error) {
	n := carriers.Normalize(rawTrackingNumber)
	if n == "" {
		return nil, errors.New("trackingNumber is required")
	}

	if s.cache != nil && s.currentTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, currentKey(n)); err == nil && ok {
			var info models.TrackingInfo
			if json.Unmarshal(b, &info) == nil {
				return &info, nil
			}
		}
	}

	info, err := s.resolver.Track(ctx, n)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.currentTTL > 0 {
		b, _ := json.Marshal(info)
		if err := s.cache.Set(ctx, currentKey(n), b, s.currentTTL); err != nil {
			slog.Warn("cache current state", "trackingNumber", n, "error", err.Error())
		}
	}

	if s.history != nil && userID != nil && *userID != "" {
		if err := s.history.Append(ctx, userID, info); err != nil {
			slog.Warn("append history", "trackingNumber", n, "error", err.Error())
		}
	}

	return info, nil
}

func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]*models.HistoryRecord, error) {
	if userID == "" {
		return nil, errors.New("userId is required")
	}
	if s.history == nil {
		return []*models.HistoryRecord{}, nil
	}
	return s.history.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) SupportedCarriers(ctx context.Context) []carriers.Code {
	return s.resolver.SupportedCarriers(ctx)
}

// ApplyResolved warms the current-status cache from a background resolution
// consumed off kafka.
func (s *Service) ApplyResolved(ctx context.Context, msg messages.TrackingResolved) error {
	if msg.TrackingNumber == "" {
		return errors.New("tracking_number is required")
	}
	if msg.Error != nil && *msg.Error != "" {
		// Ошибка фоновой проверки: кэш не трогаем, старое состояние лучше пустого.
		return nil
	}
	if s.cache == nil || s.currentTTL <= 0 {
		return nil
	}

	ts := msg.CheckedAt
	if msg.StatusAt != nil {
		ts = *msg.StatusAt
	}
	info := models.TrackingInfo{
		TrackingNumber: msg.TrackingNumber,
		Carrier:        msg.Carrier,
		Status:         msg.Status,
		Location:       msg.Location,
		Timestamp:      ts,
		Description:    msg.Description,
	}
	for _, e := range msg.Events {
		info.Events = append(info.Events, models.TrackingEvent{
			Status:      e.Status,
			Location:    e.Location,
			Timestamp:   e.EventTime,
			Description: e.Description,
		})
	}

	b, err := json.Marshal(&info)
	if err != nil {
		return errors.Wrap(err, "marshal info")
	}
	return s.cache.Set(ctx, currentKey(msg.TrackingNumber), b, s.currentTTL)
}

func currentKey(trackingNumber string) string {
	return fmt.Sprintf("track:%s:current", trackingNumber)
}
