package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/dustinel/risk-engine/internal/models"
)

// EnsembleWeights are the fixed linear-combination weights of the stacking ensemble.
// They are configuration, not learned parameters.
type EnsembleWeights struct {
	Rule    float64 `yaml:"rule"`
	PPE     float64 `yaml:"ppe"`
	Env     float64 `yaml:"env"`
	Fatigue float64 `yaml:"fatigue"`
	Trend   float64 `yaml:"trend"`
}

// DefaultEnsembleWeights returns the domain-tuned weights.
func DefaultEnsembleWeights() EnsembleWeights {
	return EnsembleWeights{Rule: 0.35, PPE: 0.25, Env: 0.20, Fatigue: 0.12, Trend: 0.08}
}

func (w EnsembleWeights) validate() error {
	values := []float64{w.Rule, w.PPE, w.Env, w.Fatigue, w.Trend}
	sum := 0.0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("ensemble weight %v is not a finite non-negative number", v)
		}
		sum += v
	}
	if sum <= 0 {
		return fmt.Errorf("ensemble weights must sum to a positive value")
	}
	return nil
}

const ensembleModelVersion = "ensemble-v1.0.0"

var (
	shiftSubScore = map[models.ShiftType]float64{
		models.ShiftMorning:   100,
		models.ShiftAfternoon: 85,
		models.ShiftNight:     65,
	}
	dustPenalty = map[models.DustLevel]float64{
		models.DustNone:    0,
		models.DustLow:     8,
		models.DustHigh:    20,
		models.DustExtreme: 35,
	}
	lightingPenalty = map[models.LightingLevel]float64{
		models.LightingGood: -2,
		models.LightingOK:   0,
		models.LightingLow:  10,
	}
)

// SubScores exposes the intermediate ensemble sub-scores.
type SubScores struct {
	Rule         float64
	Shift        float64
	Env          float64
	PPE          float64
	Fatigue      float64
	Trend        float64
	FatigueLevel float64
}

// EnsembleScorer combines the rule score with PPE, environment, fatigue and trend
// sub-scores through a weighted sum.
type EnsembleScorer struct {
	rules   *RuleScorer
	weights EnsembleWeights
}

// NewEnsembleScorer builds an EnsembleScorer on top of the given rule scorer.
func NewEnsembleScorer(rules *RuleScorer, weights EnsembleWeights) *EnsembleScorer {
	return &EnsembleScorer{rules: rules, weights: weights}
}

// SubScores computes every sub-score for a request.
func (e *EnsembleScorer) SubScores(req models.ScoreRequest, now time.Time) SubScores {
	subs, _ := e.evaluate(req, now)
	return subs
}

func (e *EnsembleScorer) evaluate(req models.ScoreRequest, now time.Time) (SubScores, RuleOutcome) {
	vision := *req.Vision
	previous := req.EffectivePreviousScore()

	level := EstimateFatigue(FatigueInput{
		Shift:         req.Shift,
		BaselineScore: req.Worker.BaselineScore,
		PreviousScore: previous,
		Conditions:    len(req.Worker.Conditions),
		LastCheckin:   req.Worker.LastCheckin,
		VisualSignal:  vision.Face.FatigueSignal,
	}, now)

	adjusted := vision
	adjusted.Face.FatigueSignal = level
	rule := e.rules.Score(RuleInput{
		Vision:        adjusted,
		Worker:        req.Worker,
		Shift:         req.Shift,
		PreviousScore: &previous,
		MandatoryPPE:  req.MandatoryPPE,
	})

	hazardPenalty := math.Min(float64(len(vision.Environment.Hazards))*5, 25)
	env := 100 - dustPenalty[vision.Environment.Dust] - lightingPenalty[vision.Environment.Lighting] - hazardPenalty

	ppe := 100.0
	if !vision.Face.HasHelmet {
		ppe -= 30
	}
	if !vision.Face.HasMask {
		ppe -= 30
	}

	subs := SubScores{
		Rule:         float64(rule.Score),
		Shift:        shiftSubScore[req.Shift],
		Env:          clamp(env, 0, 100),
		PPE:          clamp(ppe, 0, 100),
		Fatigue:      clamp(100-level*60, 0, 100),
		Trend:        trendSubScore(previous - req.Worker.BaselineScore),
		FatigueLevel: level,
	}
	return subs, rule
}

// Score produces the ensemble ScoreResult. It fails only on unusable weights.
func (e *EnsembleScorer) Score(req models.ScoreRequest, now time.Time) (models.ScoreResult, error) {
	if err := e.weights.validate(); err != nil {
		return models.ScoreResult{}, err
	}

	subs, rule := e.evaluate(req, now)
	w := e.weights
	final := subs.Rule*w.Rule + subs.PPE*w.PPE + subs.Env*w.Env + subs.Fatigue*w.Fatigue + subs.Trend*w.Trend
	if math.IsNaN(final) || math.IsInf(final, 0) {
		return models.ScoreResult{}, fmt.Errorf("ensemble produced non-finite score")
	}

	factors := make([]models.RiskFactor, 0, len(rule.Factors)+4)
	for _, f := range rule.Factors {
		f.Source = models.SourceEnsemble
		factors = append(factors, f)
	}
	factors = appendComposite(factors, "PPE_NON_COMPLIANCE", subs.PPE, 70, 40)
	factors = appendComposite(factors, "ENVIRONMENTAL_EXPOSURE", subs.Env, 75, 50)
	factors = appendComposite(factors, "FATIGUE_RISK", subs.Fatigue, 70, 50)
	factors = appendComposite(factors, "HEALTH_TREND_DECLINE", subs.Trend, 70, 55)

	return finalize(final, factors, models.MethodEnsemble, ensembleConfidence(*req.Vision), ensembleModelVersion), nil
}

// appendComposite adds a factor when sub is at or below trigger; HIGH at or below high.
func appendComposite(factors []models.RiskFactor, factorType string, sub, trigger, high float64) []models.RiskFactor {
	if sub > trigger {
		return factors
	}
	severity := models.SeverityMedium
	if sub <= high {
		severity = models.SeverityHigh
	}
	return append(factors, models.RiskFactor{
		Type:     factorType,
		Severity: severity,
		Weight:   round3((100 - sub) / 100),
		Source:   models.SourceEnsemble,
	})
}

func trendSubScore(delta int) float64 {
	switch {
	case delta >= 10:
		return 100
	case delta >= 0:
		return 92
	case delta >= -10:
		return 80
	case delta >= -20:
		return 68
	default:
		return 55
	}
}

func ensembleConfidence(v models.VisionObservation) float64 {
	return clamp(round3(0.2+0.5*v.Face.Confidence+0.3*v.Environment.Clarity), 0, 1)
}
