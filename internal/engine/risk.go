package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dustinel/risk-engine/internal/models"
)

// MaxRiskFactors bounds the factors returned with every score.
const MaxRiskFactors = 5

// ErrInvalidInput marks structurally missing or out-of-range scoring inputs.
var ErrInvalidInput = errors.New("invalid scoring input")

// ScoreToRiskLevel maps a health score onto the four risk tiers.
func ScoreToRiskLevel(score int) models.RiskLevel {
	switch {
	case score >= 80:
		return models.RiskLow
	case score >= 60:
		return models.RiskMedium
	case score >= 40:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

// NeedsAlert reports whether a risk level warrants an alert.
func NeedsAlert(level models.RiskLevel) bool {
	return level == models.RiskHigh || level == models.RiskCritical
}

// finalize clamps the score, derives the level and orders the factors.
func finalize(score float64, factors []models.RiskFactor, method models.ScoringMethod, confidence float64, version string) models.ScoreResult {
	health := clampScore(score)
	return models.ScoreResult{
		HealthScore:   health,
		RiskLevel:     ScoreToRiskLevel(health),
		RiskFactors:   RankFactors(factors),
		ScoringMethod: method,
		Confidence:    confidence,
		ModelVersion:  version,
	}
}

// RankFactors sorts by weight descending and truncates to MaxRiskFactors.
func RankFactors(factors []models.RiskFactor) []models.RiskFactor {
	ranked := append([]models.RiskFactor(nil), factors...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Weight > ranked[j].Weight
	})
	if len(ranked) > MaxRiskFactors {
		ranked = ranked[:MaxRiskFactors]
	}
	return ranked
}

func clampScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	return int(math.Round(clamp(score, 0, 100)))
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// round3 rounds half-thousandths up even when the float sum lands just below them.
func round3(value float64) float64 {
	return math.Round(value*1000+1e-9) / 1000
}

// validateRequest rejects requests this module must not invent values for.
func validateRequest(req models.ScoreRequest) error {
	if req.Vision == nil {
		return fmt.Errorf("%w: vision observation is required", ErrInvalidInput)
	}
	if !req.Shift.Valid() {
		return fmt.Errorf("%w: unknown shift type %q", ErrInvalidInput, req.Shift)
	}
	if req.Worker.BaselineScore < 0 || req.Worker.BaselineScore > 100 {
		return fmt.Errorf("%w: baseline score %d outside [0,100]", ErrInvalidInput, req.Worker.BaselineScore)
	}
	if req.PreviousScore != nil && (*req.PreviousScore < 0 || *req.PreviousScore > 100) {
		return fmt.Errorf("%w: previous score %d outside [0,100]", ErrInvalidInput, *req.PreviousScore)
	}
	face := req.Vision.Face
	if !unitInterval(face.FatigueSignal) || !unitInterval(face.Confidence) {
		return fmt.Errorf("%w: face signals must be within [0,1]", ErrInvalidInput)
	}
	env := req.Vision.Environment
	if _, ok := dustCodes[env.Dust]; !ok {
		return fmt.Errorf("%w: unknown dust level %q", ErrInvalidInput, env.Dust)
	}
	if _, ok := lightingCodes[env.Lighting]; !ok {
		return fmt.Errorf("%w: unknown lighting level %q", ErrInvalidInput, env.Lighting)
	}
	if !unitInterval(env.Clarity) {
		return fmt.Errorf("%w: image clarity must be within [0,1]", ErrInvalidInput)
	}
	return nil
}

func unitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

var (
	dustCodes = map[models.DustLevel]int{
		models.DustNone: 0, models.DustLow: 1, models.DustHigh: 2, models.DustExtreme: 3,
	}
	lightingCodes = map[models.LightingLevel]int{
		models.LightingLow: 0, models.LightingOK: 1, models.LightingGood: 2,
	}
	shiftCodes = map[models.ShiftType]int{
		models.ShiftMorning: 0, models.ShiftAfternoon: 1, models.ShiftNight: 2,
	}
)
