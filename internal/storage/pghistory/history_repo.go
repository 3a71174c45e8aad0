package pghistory

import (
	"context"
	"time"

	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
)

// Append stores one resolved state as a new history row. userID is nil for
// rows written by the background refresher.
func (s *Storage) Append(ctx context.Context, userID *string, info *models.TrackingInfo) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO tracking_history (
  user_id, tracking_number, carrier, status, location, event_time, description, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7, now())
`, userID, info.TrackingNumber, info.Carrier, info.Status, info.Location, info.Timestamp.UTC(), info.Description)
	return errors.Wrap(err, "insert history")
}

func (s *Storage) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.HistoryRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT
  id, user_id, tracking_number, carrier,
  status, location, event_time, description, created_at
FROM tracking_history
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select history")
	}
	defer rows.Close()

	var out []*models.HistoryRecord
	for rows.Next() {
		var r models.HistoryRecord
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.TrackingNumber, &r.Carrier,
			&r.Status, &r.Location, &r.EventTime, &r.Description, &r.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan history")
		}
		out = append(out, &r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// Latest returns the most recent row for a tracking number, nil when the
// number was never resolved.
func (s *Storage) Latest(ctx context.Context, trackingNumber string) (*models.HistoryRecord, error) {
	rows, err := s.db.Query(ctx, `
SELECT
  id, user_id, tracking_number, carrier,
  status, location, event_time, description, created_at
FROM tracking_history
WHERE tracking_number = $1
ORDER BY created_at DESC
LIMIT 1
`, trackingNumber)
	if err != nil {
		return nil, errors.Wrap(err, "select latest")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var r models.HistoryRecord
	if err := rows.Scan(
		&r.ID, &r.UserID, &r.TrackingNumber, &r.Carrier,
		&r.Status, &r.Location, &r.EventTime, &r.Description, &r.CreatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "scan latest")
	}
	return &r, nil
}

// DueTrackingNumbers выбирает номера, у которых последняя запись старше
// cutoff и статус ещё не DELIVERED: их стоит перепроверить в фоне.
func (s *Storage) DueTrackingNumbers(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `
SELECT tracking_number FROM (
  SELECT DISTINCT ON (tracking_number) tracking_number, status, created_at
  FROM tracking_history
  ORDER BY tracking_number, created_at DESC
) latest
WHERE latest.created_at <= $1
  AND latest.status <> $2
ORDER BY latest.created_at ASC
LIMIT $3
`, cutoff.UTC(), models.TrackingStatusDelivered, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due numbers")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, errors.Wrap(err, "scan due number")
		}
		out = append(out, n)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
