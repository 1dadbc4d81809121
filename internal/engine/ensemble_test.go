package engine

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/dustinel/risk-engine/internal/models"
)

var scoringNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func scoreRequest(vision models.VisionObservation, shift models.ShiftType) models.ScoreRequest {
	last := scoringNow.Add(-48 * time.Hour)
	return models.ScoreRequest{
		WorkerID: "w-1",
		Vision:   &vision,
		Worker:   models.WorkerContext{BaselineScore: 90, LastCheckin: &last},
		Shift:    shift,
	}
}

func newTestEnsemble() *EnsembleScorer {
	return NewEnsembleScorer(NewRuleScorer(DefaultDeductions(), nil), DefaultEnsembleWeights())
}

func TestEnsembleCompliantCheckin(t *testing.T) {
	ensemble := newTestEnsemble()
	req := scoreRequest(compliantVision(), models.ShiftMorning)

	subs := ensemble.SubScores(req, scoringNow)
	if subs.Rule != 100 || subs.PPE != 100 || subs.Env != 100 || subs.Trend != 92 || subs.Shift != 100 {
		t.Fatalf("unexpected sub-scores %+v", subs)
	}
	if !approx(subs.FatigueLevel, 0.21) || !approx(subs.Fatigue, 87.4) {
		t.Fatalf("unexpected fatigue sub-scores %+v", subs)
	}

	result, err := ensemble.Score(req, scoringNow)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.HealthScore != 98 || result.RiskLevel != models.RiskLow || len(result.RiskFactors) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.ScoringMethod != models.MethodEnsemble || result.ModelVersion != ensembleModelVersion {
		t.Fatalf("unexpected provenance %+v", result)
	}
	if !approx(result.Confidence, 0.89) {
		t.Fatalf("expected confidence 0.89, got %v", result.Confidence)
	}
}

func TestEnsembleMissingPPE(t *testing.T) {
	vision := models.VisionObservation{
		Face:        models.FaceObservation{FatigueSignal: 0.2, Confidence: 0.9},
		Environment: models.EnvironmentObservation{Dust: models.DustExtreme, Lighting: models.LightingOK, Clarity: 0.8},
	}
	result, err := newTestEnsemble().Score(scoreRequest(vision, models.ShiftNight), scoringNow)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.HealthScore != 46 || result.RiskLevel != models.RiskHigh {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.RiskFactors) != MaxRiskFactors {
		t.Fatalf("expected truncated factors, got %v", result.RiskFactors)
	}
	top := result.RiskFactors[0]
	if top.Type != "PPE_NON_COMPLIANCE" || top.Severity != models.SeverityHigh || !approx(top.Weight, 0.6) {
		t.Fatalf("unexpected top factor %+v", top)
	}
	for _, f := range result.RiskFactors {
		if f.Source != models.SourceEnsemble {
			t.Fatalf("factor %s has source %s", f.Type, f.Source)
		}
	}
	env := factorTypes(result.RiskFactors)["ENVIRONMENTAL_EXPOSURE"]
	if env.Severity != models.SeverityMedium || !approx(env.Weight, 0.35) {
		t.Fatalf("unexpected environment factor %+v", env)
	}
}

func TestEnsembleFusedFatigueFeedsRules(t *testing.T) {
	vision := compliantVision()
	vision.Face.FatigueSignal = 0.9
	req := scoreRequest(vision, models.ShiftNight)
	previous := 50
	req.PreviousScore = &previous

	result, err := newTestEnsemble().Score(req, scoringNow)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	got := factorTypes(result.RiskFactors)
	if _, ok := got["HIGH_FATIGUE"]; !ok {
		t.Fatalf("expected fused fatigue to trigger HIGH_FATIGUE, got %v", result.RiskFactors)
	}
	if f := got["FATIGUE_RISK"]; f.Severity != models.SeverityMedium {
		t.Fatalf("expected MEDIUM fatigue composite, got %+v", f)
	}
	if f := got["HEALTH_TREND_DECLINE"]; f.Severity != models.SeverityHigh || !approx(f.Weight, 0.45) {
		t.Fatalf("expected HIGH trend composite, got %+v", f)
	}
}

func TestEnsembleRejectsBadWeights(t *testing.T) {
	cases := []EnsembleWeights{
		{Rule: -0.1, PPE: 1},
		{},
		{Rule: math.NaN()},
		{Rule: math.Inf(1)},
	}
	for _, w := range cases {
		ensemble := NewEnsembleScorer(NewRuleScorer(DefaultDeductions(), nil), w)
		if _, err := ensemble.Score(scoreRequest(compliantVision(), models.ShiftMorning), scoringNow); err == nil {
			t.Fatalf("expected error for weights %+v", w)
		}
	}
}

func TestTrendSubScore(t *testing.T) {
	cases := map[int]float64{15: 100, 10: 100, 0: 92, -1: 80, -10: 80, -11: 68, -20: 68, -21: 55}
	for delta, want := range cases {
		if got := trendSubScore(delta); got != want {
			t.Fatalf("delta %d: expected %v, got %v", delta, want, got)
		}
	}
}

func TestScorersAreDeterministic(t *testing.T) {
	previous := 55
	vision := models.VisionObservation{
		Face: models.FaceObservation{HasMask: false, HasHelmet: true, FatigueSignal: 0.65, Confidence: 0.8},
		Environment: models.EnvironmentObservation{
			Dust:     models.DustHigh,
			Lighting: models.LightingLow,
			Hazards:  []string{"wet_floor", "debris", "noise"},
			Clarity:  0.7,
		},
	}
	req := scoreRequest(vision, models.ShiftNight)
	req.PreviousScore = &previous
	req.Worker.Conditions = []string{"asthma"}

	rules := NewRuleScorer(DefaultDeductions(), nil)
	in := RuleInput{Vision: vision, Worker: req.Worker, Shift: req.Shift, PreviousScore: req.PreviousScore}
	first := rules.Score(in)
	if len(first.Factors) < 5 {
		t.Fatalf("expected a rich factor set, got %v", first.Factors)
	}
	if second := rules.Score(in); !reflect.DeepEqual(first, second) {
		t.Fatalf("rule scorer not deterministic:\n%+v\n%+v", first, second)
	}

	ensemble := newTestEnsemble()
	a, err := ensemble.Score(req, scoringNow)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	b, err := ensemble.Score(req, scoringNow)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("ensemble scorer not deterministic:\n%+v\n%+v", a, b)
	}
}
