package alerts

import (
	"fmt"
	"strings"

	"github.com/dustinel/risk-engine/internal/models"
)

const defaultFactorPhrase = "multiple risk factors"

var typeKeywords = []struct {
	alertType models.AlertType
	keywords  []string
}{
	{models.AlertPPEViolation, []string{"MASK", "HELMET", "PPE"}},
	{models.AlertEnvironmentHazard, []string{"DUST", "LIGHTING", "HAZARD", "ENVIRONMENT"}},
	{models.AlertFatigue, []string{"FATIGUE"}},
}

// Classify derives the alert type from the first factor of a ranked list.
func Classify(factors []models.RiskFactor) models.AlertType {
	if len(factors) == 0 {
		return models.AlertHealthRisk
	}
	top := strings.ToUpper(factors[0].Type)
	for _, group := range typeKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(top, kw) {
				return group.alertType
			}
		}
	}
	return models.AlertHealthRisk
}

// Message renders the alert text for a severity from a ranked factor list.
func Message(level models.RiskLevel, factors []models.RiskFactor) string {
	phrase := defaultFactorPhrase
	if len(factors) > 0 && factors[0].Type != "" {
		phrase = strings.ToLower(strings.ReplaceAll(factors[0].Type, "_", " "))
	}
	if level == models.RiskCritical {
		return fmt.Sprintf("CRITICAL: Immediate action required. Worker flagged for %s.", phrase)
	}
	return fmt.Sprintf("HIGH RISK: Worker flagged for %s. Supervisor attention needed.", phrase)
}
