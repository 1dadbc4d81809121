package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/dustinel/risk-engine/internal/models"
	"github.com/dustinel/risk-engine/internal/repo"
)

type fakeRemote struct {
	payload  repo.RemoteScore
	err      error
	block    bool
	features []repo.FeatureVector
}

func (f *fakeRemote) Score(ctx context.Context, features repo.FeatureVector) (repo.RemoteScore, error) {
	f.features = append(f.features, features)
	if f.block {
		<-ctx.Done()
		return repo.RemoteScore{}, ctx.Err()
	}
	return f.payload, f.err
}

func newTestOrchestrator(remote RemoteScorer, weights EnsembleWeights, timeout time.Duration) *Orchestrator {
	rules := NewRuleScorer(DefaultDeductions(), nil)
	o := NewOrchestrator(slog.New(slog.NewTextHandler(io.Discard, nil)), rules, NewEnsembleScorer(rules, weights), remote, timeout)
	o.now = func() time.Time { return scoringNow }
	return o
}

func float(v float64) *float64 { return &v }

func TestOrchestratorUsesRemoteModel(t *testing.T) {
	remote := &fakeRemote{payload: repo.RemoteScore{
		HealthScore: float(35.4),
		Confidence:  float(1.7),
		RiskFactors: []repo.RemoteFactor{
			{Type: "NO_MASK", Severity: "HIGH", Weight: 0.4},
			{Type: "DUST_LEVEL_HIGH", Severity: "MEDIUM", Weight: 0.5},
		},
	}}
	o := newTestOrchestrator(remote, DefaultEnsembleWeights(), time.Second)

	vision := compliantVision()
	vision.Face.HasMask = false
	vision.Face.EstimatedAge = 41
	vision.Environment.Dust = models.DustHigh
	vision.Environment.Hazards = []string{"wet_floor"}
	result, err := o.Score(context.Background(), scoreRequest(vision, models.ShiftNight))
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.ScoringMethod != models.MethodRemoteModel || result.HealthScore != 35 || result.RiskLevel != models.RiskCritical {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Confidence != 1 || result.ModelVersion != defaultRemoteModelVersion {
		t.Fatalf("expected clamped confidence and default version, got %+v", result)
	}
	if result.RiskFactors[0].Type != "DUST_LEVEL_HIGH" || result.RiskFactors[0].Source != models.SourceRemoteModel {
		t.Fatalf("unexpected factors %+v", result.RiskFactors)
	}

	fv := remote.features[0]
	if fv.HasMask != 0 || fv.HasHelmet != 1 || fv.DustLevel != 2 || fv.LightingLevel != 2 || fv.ShiftType != 2 {
		t.Fatalf("unexpected encoded features %+v", fv)
	}
	if fv.Age != 41 || fv.HazardCount != 1 || fv.PreviousScore != 90 || fv.BaselineScore != 90 {
		t.Fatalf("unexpected numeric features %+v", fv)
	}
}

func TestOrchestratorFallsBackToEnsemble(t *testing.T) {
	cases := map[string]*fakeRemote{
		"transport error": {err: errors.New("connection refused")},
		"timeout":         {block: true},
		"missing score":   {payload: repo.RemoteScore{}},
		"bad severity":    {payload: repo.RemoteScore{HealthScore: float(70), RiskFactors: []repo.RemoteFactor{{Type: "X", Severity: "SEVERE"}}}},
		"negative weight": {payload: repo.RemoteScore{HealthScore: float(70), RiskFactors: []repo.RemoteFactor{{Type: "X", Severity: "LOW", Weight: -1}}}},
	}
	for name, remote := range cases {
		t.Run(name, func(t *testing.T) {
			o := newTestOrchestrator(remote, DefaultEnsembleWeights(), 20*time.Millisecond)
			result, err := o.Score(context.Background(), scoreRequest(compliantVision(), models.ShiftMorning))
			if err != nil {
				t.Fatalf("score: %v", err)
			}
			if result.ScoringMethod != models.MethodEnsemble || result.HealthScore != 98 {
				t.Fatalf("expected ensemble fallback, got %+v", result)
			}
		})
	}
}

func TestOrchestratorFallsBackToRules(t *testing.T) {
	o := newTestOrchestrator(nil, EnsembleWeights{Rule: -1}, 0)
	vision := compliantVision()
	vision.Face.HasHelmet = false
	result, err := o.Score(context.Background(), scoreRequest(vision, models.ShiftMorning))
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.ScoringMethod != models.MethodRuleEngine || result.HealthScore != 75 || result.RiskLevel != models.RiskMedium {
		t.Fatalf("expected rule engine result, got %+v", result)
	}
}

func TestOrchestratorRejectsInvalidInput(t *testing.T) {
	o := newTestOrchestrator(nil, DefaultEnsembleWeights(), 0)
	tooHigh := 120

	bad := []models.ScoreRequest{
		{WorkerID: "w-1", Shift: models.ShiftMorning},
		scoreRequest(compliantVision(), "graveyard"),
		func() models.ScoreRequest {
			r := scoreRequest(compliantVision(), models.ShiftMorning)
			r.PreviousScore = &tooHigh
			return r
		}(),
		func() models.ScoreRequest {
			v := compliantVision()
			v.Face.Confidence = 1.5
			return scoreRequest(v, models.ShiftMorning)
		}(),
		func() models.ScoreRequest {
			v := compliantVision()
			v.Environment.Lighting = "DIM"
			return scoreRequest(v, models.ShiftMorning)
		}(),
	}
	for i, req := range bad {
		if _, err := o.Score(context.Background(), req); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestOrchestratorRuleFallbackUsesBaselineAsPreviousScore(t *testing.T) {
	o := newTestOrchestrator(nil, EnsembleWeights{Rule: -1}, 0)
	req := scoreRequest(compliantVision(), models.ShiftMorning)
	req.Worker.BaselineScore = 50

	result, err := o.Score(context.Background(), req)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.ScoringMethod != models.MethodRuleEngine || result.HealthScore != 95 {
		t.Fatalf("expected rule engine score 95, got %+v", result)
	}
	if len(result.RiskFactors) != 1 || result.RiskFactors[0].Type != "PREVIOUS_SCORE_LOW" {
		t.Fatalf("expected PREVIOUS_SCORE_LOW from baseline, got %v", result.RiskFactors)
	}

	previous := 85
	req.PreviousScore = &previous
	result, err = o.Score(context.Background(), req)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.HealthScore != 100 || len(result.RiskFactors) != 0 {
		t.Fatalf("explicit previous score should win over baseline, got %+v", result)
	}
}

func TestFromRemoteRejectsInfiniteWeight(t *testing.T) {
	remote := &fakeRemote{payload: repo.RemoteScore{
		HealthScore: float(70),
		RiskFactors: []repo.RemoteFactor{{Type: "NO_MASK", Severity: "HIGH", Weight: math.Inf(1)}},
	}}
	o := newTestOrchestrator(remote, DefaultEnsembleWeights(), time.Second)

	result, err := o.Score(context.Background(), scoreRequest(compliantVision(), models.ShiftMorning))
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.ScoringMethod != models.MethodEnsemble {
		t.Fatalf("expected ensemble fallback for infinite weight, got %s", result.ScoringMethod)
	}
}
