package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dustinel/risk-engine/internal/cache"
	"github.com/dustinel/risk-engine/internal/engine"
	"github.com/dustinel/risk-engine/internal/metrics"
	"github.com/dustinel/risk-engine/internal/models"
	"github.com/dustinel/risk-engine/internal/utils"
)

// DefaultCooldown is the minimum gap between two alerts of one type for one worker.
const DefaultCooldown = 30 * time.Minute

// Store is the alert persistence the manager needs.
type Store interface {
	LastAlertTime(ctx context.Context, workerID string, alertType models.AlertType) (time.Time, bool, error)
	CreateAlert(ctx context.Context, alert models.Alert) error
}

// Candidate is a scored check-in that may raise an alert.
type Candidate struct {
	CheckinID string
	Worker    models.Worker
	Level     models.RiskLevel
	Factors   []models.RiskFactor
	Site      string
}

// Decision reports what Evaluate did.
type Decision struct {
	AlertCreated bool
	Throttled    bool
	Alert        *models.Alert
}

// Manager throttles and creates alerts.
type Manager struct {
	store    Store
	cache    cache.Provider
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewManager builds a Manager. A nil cache disables the shared throttle key.
func NewManager(store Store, provider cache.Provider, cooldown time.Duration, logger *slog.Logger) *Manager {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		cache:    provider,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Evaluate raises an OPEN alert for HIGH and CRITICAL candidates unless an alert of
// the same type was raised for the worker within the cooldown.
func (m *Manager) Evaluate(ctx context.Context, c Candidate) (Decision, error) {
	if !engine.NeedsAlert(c.Level) {
		metrics.ObserveAlert(metrics.AlertSkipped)
		return Decision{}, nil
	}

	factors := engine.RankFactors(c.Factors)
	alertType := Classify(factors)
	now := m.now().UTC()
	log := m.logger.With(slog.String("worker_id", c.Worker.ID), slog.String("alert_type", string(alertType)))

	last, found, err := m.lastAlertTime(ctx, c.Worker.ID, alertType)
	if err != nil {
		metrics.ObserveAlert(metrics.OutcomeError)
		return Decision{}, utils.NewAppError("alerts.Evaluate", "read last alert time", err)
	}
	if found && now.Sub(last) < m.cooldown {
		log.Debug("alert throttled", slog.Time("last_alert", last))
		metrics.ObserveAlert(metrics.AlertThrottled)
		return Decision{Throttled: true}, nil
	}

	lockKey := throttleKey(c.Worker.ID, alertType)
	acquired, err := m.cache.SetNX(ctx, lockKey, []byte(utils.FormatRFC3339(now)), m.cooldown)
	if err != nil {
		log.Warn("throttle key unavailable, continuing without it", slog.Any("error", err))
		acquired = true
	}
	if !acquired {
		log.Debug("alert throttled by concurrent check-in")
		metrics.ObserveAlert(metrics.AlertThrottled)
		return Decision{Throttled: true}, nil
	}

	alert := models.Alert{
		ID:                m.newID(),
		OrganizationID:    c.Worker.OrganizationID,
		WorkerID:          c.Worker.ID,
		WorkerName:        c.Worker.Name,
		CheckinID:         c.CheckinID,
		CreatedAt:         now,
		Severity:          c.Level,
		Type:              alertType,
		Message:           Message(c.Level, factors),
		RiskFactorTypes:   factorTypes(factors),
		Site:              c.Site,
		Status:            models.AlertOpen,
		NotificationsSent: []models.Channel{},
	}
	if err := m.store.CreateAlert(ctx, alert); err != nil {
		if delErr := m.cache.Del(ctx, lockKey); delErr != nil {
			log.Warn("release throttle key failed", slog.Any("error", delErr))
		}
		metrics.ObserveAlert(metrics.OutcomeError)
		return Decision{}, utils.NewAppError("alerts.Evaluate", "create alert", err)
	}

	if err := m.cache.Set(ctx, lastAlertKey(c.Worker.ID, alertType), []byte(utils.FormatRFC3339(now)), m.cooldown); err != nil {
		log.Warn("cache last alert time failed", slog.Any("error", err))
	}
	log.Info("alert created", slog.String("alert_id", alert.ID), slog.String("severity", string(alert.Severity)))
	metrics.ObserveAlert(metrics.AlertCreated)
	return Decision{AlertCreated: true, Alert: &alert}, nil
}

// lastAlertTime reads the cache first and falls back to the store.
func (m *Manager) lastAlertTime(ctx context.Context, workerID string, alertType models.AlertType) (time.Time, bool, error) {
	raw, err := m.cache.Get(ctx, lastAlertKey(workerID, alertType))
	switch {
	case err == nil:
		if ts, parseErr := utils.ParseRFC3339(string(raw)); parseErr == nil {
			return ts, true, nil
		}
	case !errors.Is(err, cache.ErrCacheMiss):
		m.logger.Warn("cache read failed, using store", slog.Any("error", err))
	}
	return m.store.LastAlertTime(ctx, workerID, alertType)
}

func lastAlertKey(workerID string, alertType models.AlertType) string {
	return fmt.Sprintf("dustinel:alert:last:%s:%s", workerID, alertType)
}

func throttleKey(workerID string, alertType models.AlertType) string {
	return fmt.Sprintf("dustinel:alert:lock:%s:%s", workerID, alertType)
}

func factorTypes(factors []models.RiskFactor) []string {
	types := make([]string, 0, len(factors))
	for _, f := range factors {
		types = append(types, f.Type)
	}
	return types
}
