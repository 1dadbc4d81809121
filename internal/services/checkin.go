package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dustinel/risk-engine/internal/alerts"
	"github.com/dustinel/risk-engine/internal/engine"
	"github.com/dustinel/risk-engine/internal/metrics"
	"github.com/dustinel/risk-engine/internal/models"
	"github.com/dustinel/risk-engine/internal/utils"
)

// Store defines the document operations a check-in needs.
type Store interface {
	GetWorker(ctx context.Context, workerID string) (models.Worker, error)
	CreateHealthRecord(ctx context.Context, rec models.HealthRecord) error
	UpdateHealthProfile(ctx context.Context, workerID string, level models.RiskLevel, checkedIn time.Time, streak int) error
	RecordNotifications(ctx context.Context, alertID string, channels []models.Channel) error
	AttachAlert(ctx context.Context, recordID, alertID string) error
}

// EventPublisher emits alert events downstream.
type EventPublisher interface {
	PublishAlert(ctx context.Context, alert models.Alert) error
}

// CheckinService runs one check-in end to end: score, recommend, persist, alert, notify.
type CheckinService struct {
	logger      *slog.Logger
	store       Store
	scorer      *engine.Orchestrator
	recommender *engine.RecommendationEngine
	alerts      *alerts.Manager
	notifier    Notifier
	events      EventPublisher
	latencies   *utils.LatencyTracker
	now         func() time.Time
	newID       func() string
}

// Notifier fans an alert out to notification channels.
type Notifier interface {
	Dispatch(ctx context.Context, worker models.Worker, alert models.Alert) []models.Channel
}

// CheckinDeps groups the collaborators of a CheckinService.
type CheckinDeps struct {
	Store       Store
	Scorer      *engine.Orchestrator
	Recommender *engine.RecommendationEngine
	Alerts      *alerts.Manager
	Notifier    Notifier
	Events      EventPublisher
}

// NewCheckinService constructs the check-in orchestration.
func NewCheckinService(logger *slog.Logger, deps CheckinDeps) *CheckinService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckinService{
		logger:      logger,
		store:       deps.Store,
		scorer:      deps.Scorer,
		recommender: deps.Recommender,
		alerts:      deps.Alerts,
		notifier:    deps.Notifier,
		events:      deps.Events,
		latencies:   utils.NewLatencyTracker(1024),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Submit scores a check-in, persists the health record and raises alerts as needed.
// Failures after the health record is stored are logged and do not fail the check-in.
func (s *CheckinService) Submit(ctx context.Context, req models.CheckinRequest) (models.CheckinResponse, error) {
	start := time.Now()
	resp, err := s.submit(ctx, req)
	duration := time.Since(start)
	resp.Duration = duration

	if err != nil {
		metrics.ObserveCheckin(duration, metrics.OutcomeError)
		return resp, err
	}
	metrics.ObserveCheckin(duration, metrics.OutcomeSuccess)
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("check-in latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}
	return resp, nil
}

func (s *CheckinService) submit(ctx context.Context, req models.CheckinRequest) (models.CheckinResponse, error) {
	if req.WorkerID == "" || req.Vision == nil {
		return models.CheckinResponse{}, fmt.Errorf("%w: workerId and visionAnalysis are required", engine.ErrInvalidInput)
	}

	worker, err := s.store.GetWorker(ctx, req.WorkerID)
	if err != nil {
		return models.CheckinResponse{}, fmt.Errorf("load worker %s: %w", req.WorkerID, err)
	}

	shift := req.Shift
	if shift == "" {
		shift = worker.Health.Shift
	}
	submittedAt := req.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = s.now()
	}
	submittedAt = submittedAt.UTC()

	score, err := s.scorer.Score(ctx, models.ScoreRequest{
		WorkerID:      worker.ID,
		Vision:        req.Vision,
		Worker:        worker.Health,
		Shift:         shift,
		PreviousScore: req.PreviousScore,
	})
	if err != nil {
		return models.CheckinResponse{}, err
	}

	recs := s.recommender.Recommend(engine.RecommendationInput{
		Score:  score,
		Vision: *req.Vision,
		Worker: worker.Health,
		Shift:  shift,
	})

	record := models.HealthRecord{
		ID:              s.newID(),
		WorkerID:        worker.ID,
		OrganizationID:  worker.OrganizationID,
		CreatedAt:       submittedAt,
		Shift:           shift,
		Site:            worker.Site,
		Vision:          *req.Vision,
		Score:           score,
		Recommendations: recs,
	}
	if err := s.store.CreateHealthRecord(ctx, record); err != nil {
		return models.CheckinResponse{}, utils.NewAppError("services.Submit", "persist health record", err)
	}

	log := s.logger.With(slog.String("worker_id", worker.ID), slog.String("checkin_id", record.ID))
	log.Info("check-in scored",
		slog.Int("score", score.HealthScore),
		slog.String("risk_level", string(score.RiskLevel)),
		slog.String("method", string(score.ScoringMethod)))

	streak := 0
	if score.RiskLevel == models.RiskLow {
		streak = worker.Health.LowRiskStreak + 1
	}
	if err := s.store.UpdateHealthProfile(ctx, worker.ID, score.RiskLevel, submittedAt, streak); err != nil {
		log.Warn("update health profile failed", slog.Any("error", err))
	}

	resp := models.CheckinResponse{
		CheckinID:       record.ID,
		Score:           score,
		Recommendations: recs,
	}

	decision, err := s.alerts.Evaluate(ctx, alerts.Candidate{
		CheckinID: record.ID,
		Worker:    worker,
		Level:     score.RiskLevel,
		Factors:   score.RiskFactors,
		Site:      worker.Site,
	})
	if err != nil {
		log.Warn("alert evaluation failed", slog.Any("error", err))
		return resp, nil
	}
	resp.AlertThrottled = decision.Throttled
	if !decision.AlertCreated || decision.Alert == nil {
		return resp, nil
	}

	alert := *decision.Alert
	resp.AlertTriggered = true
	resp.AlertID = alert.ID

	if s.notifier != nil {
		alert.NotificationsSent = s.notifier.Dispatch(ctx, worker, alert)
	} else {
		alert.NotificationsSent = []models.Channel{models.ChannelInApp}
	}
	resp.Channels = alert.NotificationsSent

	if err := s.store.RecordNotifications(ctx, alert.ID, alert.NotificationsSent); err != nil {
		log.Warn("record notifications failed", slog.String("alert_id", alert.ID), slog.Any("error", err))
	}
	if err := s.store.AttachAlert(ctx, record.ID, alert.ID); err != nil {
		log.Warn("link alert to health record failed", slog.String("alert_id", alert.ID), slog.Any("error", err))
	}
	if s.events != nil {
		if err := s.events.PublishAlert(ctx, alert); err != nil {
			log.Warn("publish alert event failed", slog.String("alert_id", alert.ID), slog.Any("error", err))
		}
	}
	return resp, nil
}
