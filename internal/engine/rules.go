package engine

import (
	"strings"

	"github.com/dustinel/risk-engine/internal/models"
)

// Deductions holds the fixed point deductions applied by the rule scorer.
type Deductions struct {
	NoMask           int `yaml:"noMask"`
	NoHelmet         int `yaml:"noHelmet"`
	DustExtreme      int `yaml:"dustExtreme"`
	DustHigh         int `yaml:"dustHigh"`
	PoorLighting     int `yaml:"poorLighting"`
	HazardEach       int `yaml:"hazardEach"`
	HazardMax        int `yaml:"hazardMax"`
	FatigueHigh      int `yaml:"fatigueHigh"`
	FatigueMedium    int `yaml:"fatigueMedium"`
	NightShift       int `yaml:"nightShift"`
	PreviousScoreLow int `yaml:"previousScoreLow"`
	ChronicCondition int `yaml:"chronicCondition"`
}

// DefaultDeductions returns the domain-tuned deduction table.
func DefaultDeductions() Deductions {
	return Deductions{
		NoMask:           30,
		NoHelmet:         25,
		DustExtreme:      20,
		DustHigh:         10,
		PoorLighting:     10,
		HazardEach:       5,
		HazardMax:        20,
		FatigueHigh:      15,
		FatigueMedium:    8,
		NightShift:       5,
		PreviousScoreLow: 5,
		ChronicCondition: 5,
	}
}

// DefaultMandatoryPPE lists the PPE items checked when none are configured.
var DefaultMandatoryPPE = []string{"helmet", "mask"}

const (
	fatigueHighThreshold   = 0.7
	fatigueMediumThreshold = 0.5
	previousScoreFloor     = 60
	rulesModelVersion      = "rules-v1.0.0"
)

// RuleInput is everything the rule scorer looks at.
type RuleInput struct {
	Vision        models.VisionObservation
	Worker        models.WorkerContext
	Shift         models.ShiftType
	PreviousScore *int
	MandatoryPPE  []string
}

// RuleOutcome is the unclamped-then-clamped result of a rule pass.
type RuleOutcome struct {
	Score   int
	Factors []models.RiskFactor
}

// RuleScorer applies deterministic deductions starting from 100. It never fails.
type RuleScorer struct {
	deductions   Deductions
	mandatoryPPE []string
}

// NewRuleScorer builds a RuleScorer; a nil ppe list selects DefaultMandatoryPPE.
func NewRuleScorer(deductions Deductions, mandatoryPPE []string) *RuleScorer {
	if len(mandatoryPPE) == 0 {
		mandatoryPPE = DefaultMandatoryPPE
	}
	return &RuleScorer{deductions: deductions, mandatoryPPE: mandatoryPPE}
}

// Score runs the deduction table against the input.
func (r *RuleScorer) Score(in RuleInput) RuleOutcome {
	d := r.deductions
	ppe := in.MandatoryPPE
	if len(ppe) == 0 {
		ppe = r.mandatoryPPE
	}

	score := 100
	factors := make([]models.RiskFactor, 0, 8)
	add := func(deduction int, factorType string, severity models.Severity, weight float64, confidence *float64) {
		score -= deduction
		factors = append(factors, models.RiskFactor{
			Type:       factorType,
			Severity:   severity,
			Weight:     weight,
			Confidence: confidence,
			Source:     models.SourceRuleEngine,
		})
	}

	face := in.Vision.Face
	env := in.Vision.Environment

	if requiresPPE(ppe, "mask") && !face.HasMask {
		add(d.NoMask, "NO_MASK", models.SeverityHigh, 0.35, floatPtr(face.Confidence))
	}
	if requiresPPE(ppe, "helmet") && !face.HasHelmet {
		add(d.NoHelmet, "NO_HELMET", models.SeverityHigh, 0.30, floatPtr(face.Confidence))
	}

	switch env.Dust {
	case models.DustExtreme:
		add(d.DustExtreme, "DUST_LEVEL_EXTREME", models.SeverityHigh, 0.20, nil)
	case models.DustHigh:
		add(d.DustHigh, "DUST_LEVEL_ELEVATED", models.SeverityMedium, 0.10, nil)
	}

	if env.Lighting == models.LightingLow {
		add(d.PoorLighting, "POOR_LIGHTING", models.SeverityMedium, 0.10, nil)
	}

	if len(env.Hazards) > 0 {
		hazardDeduction := len(env.Hazards) * d.HazardEach
		if hazardDeduction > d.HazardMax {
			hazardDeduction = d.HazardMax
		}
		score -= hazardDeduction
		for _, hazard := range env.Hazards {
			factors = append(factors, models.RiskFactor{
				Type:     "HAZARD_" + strings.ToUpper(hazard),
				Severity: models.SeverityMedium,
				Weight:   0.05,
				Source:   models.SourceRuleEngine,
			})
		}
	}

	switch {
	case face.FatigueSignal > fatigueHighThreshold:
		add(d.FatigueHigh, "HIGH_FATIGUE", models.SeverityHigh, 0.15, floatPtr(face.FatigueSignal))
	case face.FatigueSignal > fatigueMediumThreshold:
		add(d.FatigueMedium, "MODERATE_FATIGUE", models.SeverityMedium, 0.08, floatPtr(face.FatigueSignal))
	}

	if in.Shift == models.ShiftNight {
		add(d.NightShift, "NIGHT_SHIFT", models.SeverityLow, 0.05, nil)
	}

	if in.PreviousScore != nil && *in.PreviousScore < previousScoreFloor {
		add(d.PreviousScoreLow, "PREVIOUS_SCORE_LOW", models.SeverityLow, 0.05, nil)
	}

	if len(in.Worker.Conditions) > 0 {
		add(d.ChronicCondition, "CHRONIC_CONDITION", models.SeverityLow, 0.05, nil)
	}

	return RuleOutcome{Score: clampScore(float64(score)), Factors: factors}
}

// ScoreResult wraps a rule pass as a rule_engine ScoreResult.
func (r *RuleScorer) ScoreResult(in RuleInput) models.ScoreResult {
	out := r.Score(in)
	return finalize(float64(out.Score), out.Factors, models.MethodRuleEngine, 1.0, rulesModelVersion)
}

func requiresPPE(list []string, item string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), item) {
			return true
		}
	}
	return false
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}
