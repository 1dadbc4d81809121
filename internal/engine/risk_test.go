package engine

import (
	"testing"

	"github.com/dustinel/risk-engine/internal/models"
)

func TestScoreToRiskLevel(t *testing.T) {
	cases := map[int]models.RiskLevel{
		100: models.RiskLow,
		80:  models.RiskLow,
		79:  models.RiskMedium,
		60:  models.RiskMedium,
		59:  models.RiskHigh,
		40:  models.RiskHigh,
		39:  models.RiskCritical,
		0:   models.RiskCritical,
	}
	for score, want := range cases {
		if got := ScoreToRiskLevel(score); got != want {
			t.Fatalf("score %d: expected %s, got %s", score, want, got)
		}
	}
}

func TestNeedsAlert(t *testing.T) {
	if NeedsAlert(models.RiskLow) || NeedsAlert(models.RiskMedium) {
		t.Fatalf("low and medium must not alert")
	}
	if !NeedsAlert(models.RiskHigh) || !NeedsAlert(models.RiskCritical) {
		t.Fatalf("high and critical must alert")
	}
}

func TestFinalizeRanksAndTruncates(t *testing.T) {
	factors := []models.RiskFactor{
		{Type: "A", Weight: 0.05},
		{Type: "B", Weight: 0.30},
		{Type: "C", Weight: 0.10},
		{Type: "D", Weight: 0.30},
		{Type: "E", Weight: 0.20},
		{Type: "F", Weight: 0.01},
	}
	result := finalize(104.4, factors, models.MethodRuleEngine, 1, "v")
	if result.HealthScore != 100 || result.RiskLevel != models.RiskLow {
		t.Fatalf("expected clamped LOW score, got %+v", result)
	}
	if len(result.RiskFactors) != MaxRiskFactors {
		t.Fatalf("expected %d factors, got %d", MaxRiskFactors, len(result.RiskFactors))
	}
	order := []string{"B", "D", "E", "C", "A"}
	for i, want := range order {
		if result.RiskFactors[i].Type != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, result.RiskFactors[i].Type)
		}
	}
	if factors[0].Type != "A" {
		t.Fatalf("input slice must not be reordered")
	}
}
