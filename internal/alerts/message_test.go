package alerts

import (
	"testing"

	"github.com/dustinel/risk-engine/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		factor string
		want   models.AlertType
	}{
		{"NO_MASK", models.AlertPPEViolation},
		{"PPE_NON_COMPLIANCE", models.AlertPPEViolation},
		{"DUST_LEVEL_EXTREME", models.AlertEnvironmentHazard},
		{"HAZARD_FIRE", models.AlertEnvironmentHazard},
		{"ENVIRONMENTAL_EXPOSURE", models.AlertEnvironmentHazard},
		{"FATIGUE_RISK", models.AlertFatigue},
		{"CHRONIC_CONDITION", models.AlertHealthRisk},
		{"", models.AlertHealthRisk},
	}
	for _, tt := range tests {
		got := Classify([]models.RiskFactor{{Type: tt.factor}})
		if got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.factor, got, tt.want)
		}
	}
	if got := Classify(nil); got != models.AlertHealthRisk {
		t.Errorf("Classify(nil) = %s", got)
	}
}

func TestMessage(t *testing.T) {
	factors := []models.RiskFactor{{Type: "DUST_LEVEL_EXTREME"}}
	if got := Message(models.RiskHigh, factors); got != "HIGH RISK: Worker flagged for dust level extreme. Supervisor attention needed." {
		t.Fatalf("unexpected high message %q", got)
	}
	if got := Message(models.RiskCritical, nil); got != "CRITICAL: Immediate action required. Worker flagged for multiple risk factors." {
		t.Fatalf("unexpected critical message %q", got)
	}
}
