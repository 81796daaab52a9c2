package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wastelog/backend/services/dashboard-service/internal/domain"
)

// Schema creates the visit archive table.
const Schema = `
CREATE TABLE IF NOT EXISTS visit_sessions (
	device_id        TEXT             NOT NULL,
	area_id          TEXT             NOT NULL,
	entry_time       TEXT             NOT NULL,
	entry_at         TIMESTAMPTZ      NOT NULL,
	exit_time        TEXT             NOT NULL DEFAULT '',
	title            TEXT             NOT NULL,
	duration_seconds DOUBLE PRECISION,
	volume_liter     DOUBLE PRECISION,
	distance_cm      DOUBLE PRECISION,
	updated_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
	PRIMARY KEY (device_id, area_id, entry_time)
)`

// VisitRepository archives reconciled visits so history survives the
// upstream log being trimmed.
type VisitRepository struct {
	db *sql.DB
}

// NewVisitRepository returns repository.
func NewVisitRepository(db *sql.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// upsertSessionQuery mirrors the latest snapshot. Volume and distance come
// from the same measurement, so both are replaced together.
const upsertSessionQuery = `
	INSERT INTO visit_sessions (device_id, area_id, entry_time, entry_at, exit_time, title, duration_seconds, volume_liter, distance_cm, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	ON CONFLICT (device_id, area_id, entry_time) DO UPDATE SET
		exit_time = EXCLUDED.exit_time,
		title = EXCLUDED.title,
		duration_seconds = EXCLUDED.duration_seconds,
		volume_liter = EXCLUDED.volume_liter,
		distance_cm = EXCLUDED.distance_cm,
		updated_at = NOW()
`

// UpsertSessions stores the sessions of one snapshot in a single transaction.
// Sessions with an unparseable entry time are skipped. An archived row takes
// the snapshot's values, so a measurement moved to another session by a later
// pass is cleared from the old row.
func (r *VisitRepository) UpsertSessions(ctx context.Context, deviceID string, sessions []domain.VisitSession) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSessionQuery)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	written := 0
	for _, s := range sessions {
		entryAt, err := domain.ParseTimestamp(s.EntryTime)
		if err != nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			deviceID,
			s.AreaID,
			s.EntryTime,
			entryAt,
			s.ExitTime,
			s.Title,
			nullFloat(s.DurationSeconds),
			nullFloat(s.Volume),
			nullFloat(s.Distance),
		); err != nil {
			return 0, fmt.Errorf("upsert visit %s@%s: %w", s.AreaID, s.EntryTime, err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}

// ListSessions returns archived visits with entry in [from, to), oldest first.
func (r *VisitRepository) ListSessions(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]domain.VisitSession, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	const query = `
		SELECT area_id, entry_time, exit_time, title, duration_seconds, volume_liter, distance_cm
		FROM visit_sessions
		WHERE device_id = $1 AND entry_at >= $2 AND entry_at < $3
		ORDER BY entry_at ASC, area_id ASC
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, deviceID, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]domain.VisitSession, 0)
	for rows.Next() {
		var (
			s                          domain.VisitSession
			duration, volume, distance sql.NullFloat64
		)
		if err := rows.Scan(
			&s.AreaID,
			&s.EntryTime,
			&s.ExitTime,
			&s.Title,
			&duration,
			&volume,
			&distance,
		); err != nil {
			return nil, err
		}
		s.Start = s.EntryTime
		s.DurationSeconds = floatPtr(duration)
		s.Volume = floatPtr(volume)
		s.Distance = floatPtr(distance)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
