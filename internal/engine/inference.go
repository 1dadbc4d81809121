package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dustinel/risk-engine/internal/metrics"
	"github.com/dustinel/risk-engine/internal/models"
	"github.com/dustinel/risk-engine/internal/repo"
	"github.com/dustinel/risk-engine/internal/utils"
)

// RemoteScorer describes the remote scoring model used ahead of the local fallbacks.
type RemoteScorer interface {
	Score(ctx context.Context, features repo.FeatureVector) (repo.RemoteScore, error)
}

// DefaultRemoteTimeout bounds a single remote model attempt.
const DefaultRemoteTimeout = 5 * time.Second

const defaultRemoteModelVersion = "ml-v1"

// Orchestrator tries the remote model and degrades to the ensemble, then to the
// bare rule scorer, always producing a risk-classified result.
type Orchestrator struct {
	logger    *slog.Logger
	rules     *RuleScorer
	ensemble  *EnsembleScorer
	remote    RemoteScorer
	timeout   time.Duration
	now       func() time.Time
	latencies *utils.LatencyTracker
}

// NewOrchestrator wires the scoring tiers; remote may be nil to run locally only.
func NewOrchestrator(logger *slog.Logger, rules *RuleScorer, ensemble *EnsembleScorer, remote RemoteScorer, timeout time.Duration) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = NewRuleScorer(DefaultDeductions(), nil)
	}
	if ensemble == nil {
		ensemble = NewEnsembleScorer(rules, DefaultEnsembleWeights())
	}
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &Orchestrator{
		logger:    logger,
		rules:     rules,
		ensemble:  ensemble,
		remote:    remote,
		timeout:   timeout,
		now:       time.Now,
		latencies: utils.NewLatencyTracker(512),
	}
}

// Score validates the request and runs the fallback chain. The only error it returns
// wraps ErrInvalidInput; scoring tier failures are absorbed into the provenance tag.
func (o *Orchestrator) Score(ctx context.Context, req models.ScoreRequest) (models.ScoreResult, error) {
	if err := validateRequest(req); err != nil {
		return models.ScoreResult{}, err
	}
	now := o.now()

	fallback, err := o.scoreEnsemble(req, now)
	if err != nil {
		o.logger.Warn("ensemble scoring failed, using rule engine",
			slog.String("worker_id", req.WorkerID), slog.Any("error", err))
		fallback = o.rules.ScoreResult(RuleInput{
			Vision:        *req.Vision,
			Worker:        req.Worker,
			Shift:         req.Shift,
			PreviousScore: intPtr(req.EffectivePreviousScore()),
			MandatoryPPE:  req.MandatoryPPE,
		})
	}

	result := fallback
	if remote, ok := o.tryRemote(ctx, req, now); ok {
		result = remote
	}

	metrics.ObserveScoring(string(result.ScoringMethod), string(result.RiskLevel))
	return result, nil
}

func (o *Orchestrator) scoreEnsemble(req models.ScoreRequest, now time.Time) (result models.ScoreResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ensemble panic: %v", r)
		}
	}()
	return o.ensemble.Score(req, now)
}

func (o *Orchestrator) tryRemote(ctx context.Context, req models.ScoreRequest, now time.Time) (models.ScoreResult, bool) {
	if o.remote == nil {
		return models.ScoreResult{}, false
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	payload, err := o.remote.Score(callCtx, o.features(req, now))
	duration := time.Since(start)
	o.latencies.Observe(duration)

	if err == nil {
		var result models.ScoreResult
		result, err = fromRemote(payload)
		if err == nil {
			metrics.ObserveRemoteModel(duration, metrics.OutcomeSuccess)
			o.logger.Debug("remote model scored check-in",
				slog.String("worker_id", req.WorkerID),
				slog.Int("score", result.HealthScore),
				slog.Float64("confidence", result.Confidence))
			return result, true
		}
	}

	outcome := metrics.OutcomeError
	if errors.Is(err, context.DeadlineExceeded) {
		outcome = metrics.OutcomeTimeout
	}
	metrics.ObserveRemoteModel(duration, outcome)
	o.logger.Warn("remote model unavailable, using local scoring",
		slog.String("worker_id", req.WorkerID),
		slog.Duration("elapsed", duration),
		slog.Any("error", err))
	if count := o.latencies.Count(); count >= 50 && count%50 == 0 {
		o.logger.Info("remote model latency", slog.Duration("p95", o.latencies.Percentile(95)), slog.Int("samples", count))
	}
	return models.ScoreResult{}, false
}

// features builds the normalized feature vector sent to the remote model.
func (o *Orchestrator) features(req models.ScoreRequest, now time.Time) repo.FeatureVector {
	v := req.Vision
	previous := req.EffectivePreviousScore()
	level := EstimateFatigue(FatigueInput{
		Shift:         req.Shift,
		BaselineScore: req.Worker.BaselineScore,
		PreviousScore: previous,
		Conditions:    len(req.Worker.Conditions),
		LastCheckin:   req.Worker.LastCheckin,
		VisualSignal:  v.Face.FatigueSignal,
	}, now)
	return repo.FeatureVector{
		WorkerID:          req.WorkerID,
		Age:               v.Face.EstimatedAge,
		FatigueScore:      level,
		HasMask:           boolToInt(v.Face.HasMask),
		HasHelmet:         boolToInt(v.Face.HasHelmet),
		DustLevel:         dustCodes[v.Environment.Dust],
		LightingLevel:     lightingCodes[v.Environment.Lighting],
		HazardCount:       len(v.Environment.Hazards),
		ShiftType:         shiftCodes[req.Shift],
		PreviousScore:     previous,
		ChronicConditions: len(req.Worker.Conditions),
		BaselineScore:     req.Worker.BaselineScore,
	}
}

// fromRemote checks the remote payload shape and normalizes it.
func fromRemote(payload repo.RemoteScore) (models.ScoreResult, error) {
	if payload.HealthScore == nil {
		return models.ScoreResult{}, fmt.Errorf("remote payload missing healthScore")
	}
	score := *payload.HealthScore
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return models.ScoreResult{}, fmt.Errorf("remote healthScore is not finite")
	}

	factors := make([]models.RiskFactor, 0, len(payload.RiskFactors))
	for _, f := range payload.RiskFactors {
		severity := models.Severity(f.Severity)
		if f.Type == "" || !severity.Valid() {
			return models.ScoreResult{}, fmt.Errorf("remote factor %q has invalid severity %q", f.Type, f.Severity)
		}
		if math.IsNaN(f.Weight) || math.IsInf(f.Weight, 0) || f.Weight < 0 {
			return models.ScoreResult{}, fmt.Errorf("remote factor %q has invalid weight", f.Type)
		}
		factors = append(factors, models.RiskFactor{
			Type:     f.Type,
			Severity: severity,
			Weight:   f.Weight,
			Source:   models.SourceRemoteModel,
		})
	}

	confidence := 0.0
	if payload.Confidence != nil {
		confidence = clamp(*payload.Confidence, 0, 1)
	}
	version := payload.ModelVersion
	if version == "" {
		version = defaultRemoteModelVersion
	}
	return finalize(score, factors, models.MethodRemoteModel, confidence, version), nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
