package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dustinel/risk-engine/internal/models"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// Store persists workers, health records and alerts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pooled connection and verifies it with a ping.
func Connect(ctx context.Context, url string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetWorker loads a worker and its health profile.
func (s *Store) GetWorker(ctx context.Context, workerID string) (models.Worker, error) {
	var (
		w     models.Worker
		shift string
		level string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, name, email, phone, site, device_tokens,
		       baseline_score, conditions, shift, last_checkin, low_risk_streak, current_risk_level
		FROM workers
		WHERE id = $1
	`, workerID).Scan(
		&w.ID, &w.OrganizationID, &w.Name, &w.Email, &w.Phone, &w.Site, &w.DeviceTokens,
		&w.Health.BaselineScore, &w.Health.Conditions, &shift, &w.Health.LastCheckin,
		&w.Health.LowRiskStreak, &level,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Worker{}, ErrNotFound
	}
	if err != nil {
		return models.Worker{}, fmt.Errorf("get worker %s: %w", workerID, err)
	}
	w.Health.Shift = models.ShiftType(shift)
	w.Health.CurrentRiskLevel = models.RiskLevel(level)
	return w, nil
}

// CreateHealthRecord inserts a scored check-in.
func (s *Store) CreateHealthRecord(ctx context.Context, rec models.HealthRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO health_records (id, worker_id, organization_id, created_at, shift, site,
		                            vision, health_score, risk_level, score, recommendations, alert_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, rec.ID, rec.WorkerID, rec.OrganizationID, rec.CreatedAt, string(rec.Shift), rec.Site,
		rec.Vision, rec.Score.HealthScore, string(rec.Score.RiskLevel), rec.Score, nonNilStrings(rec.Recommendations), rec.AlertID)
	if err != nil {
		return fmt.Errorf("insert health record: %w", err)
	}
	return nil
}

// UpdateHealthProfile stores the worker's latest risk level, check-in time and streak.
func (s *Store) UpdateHealthProfile(ctx context.Context, workerID string, level models.RiskLevel, checkedIn time.Time, streak int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE workers
		SET current_risk_level = $2, last_checkin = $3, low_risk_streak = $4
		WHERE id = $1
	`, workerID, string(level), checkedIn, streak)
	if err != nil {
		return fmt.Errorf("update health profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LastAlertTime returns the newest alert creation time for (worker, type).
func (s *Store) LastAlertTime(ctx context.Context, workerID string, alertType models.AlertType) (time.Time, bool, error) {
	var created time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT created_at FROM alerts
		WHERE worker_id = $1 AND type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, workerID, string(alertType)).Scan(&created)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last alert time: %w", err)
	}
	return created, true, nil
}

// CreateAlert inserts an alert.
func (s *Store) CreateAlert(ctx context.Context, a models.Alert) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts (id, organization_id, worker_id, worker_name, checkin_id, created_at,
		                    severity, type, message, risk_factor_types, site, status, notifications_sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, a.ID, a.OrganizationID, a.WorkerID, a.WorkerName, a.CheckinID, a.CreatedAt,
		string(a.Severity), string(a.Type), a.Message, nonNilStrings(a.RiskFactorTypes), a.Site,
		string(a.Status), channelStrings(a.NotificationsSent))
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// RecordNotifications writes the confirmed channels back onto an alert.
func (s *Store) RecordNotifications(ctx context.Context, alertID string, channels []models.Channel) error {
	tag, err := s.pool.Exec(ctx, `UPDATE alerts SET notifications_sent = $2 WHERE id = $1`,
		alertID, channelStrings(channels))
	if err != nil {
		return fmt.Errorf("record notifications: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AttachAlert links an alert to the health record that raised it.
func (s *Store) AttachAlert(ctx context.Context, recordID, alertID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE health_records SET alert_id = $2 WHERE id = $1`, recordID, alertID)
	if err != nil {
		return fmt.Errorf("attach alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func channelStrings(channels []models.Channel) []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		out = append(out, string(c))
	}
	return out
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
