package models

// RiskLevel is the four-tier classification derived from a health score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Severity captures the impact of a single risk factor.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Valid reports whether the severity is a known tier.
func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// FactorSource records which scorer emitted a factor.
type FactorSource string

const (
	SourceRuleEngine  FactorSource = "rule_engine"
	SourceEnsemble    FactorSource = "ensemble"
	SourceRemoteModel FactorSource = "remote_model"
)

// ScoringMethod is the provenance of a ScoreResult within the fallback chain.
type ScoringMethod string

const (
	MethodRemoteModel ScoringMethod = "remote_model"
	MethodEnsemble    ScoringMethod = "ensemble"
	MethodRuleEngine  ScoringMethod = "rule_engine"
)

// RiskFactor is a tagged, weighted reason contributing to a score reduction.
type RiskFactor struct {
	Type       string       `json:"type"`
	Severity   Severity     `json:"severity"`
	Weight     float64      `json:"weight"`
	Confidence *float64     `json:"confidence,omitempty"`
	Source     FactorSource `json:"source"`
}

// ScoreResult is the normalized outcome of scoring one check-in.
type ScoreResult struct {
	HealthScore   int           `json:"healthScore"`
	RiskLevel     RiskLevel     `json:"riskLevel"`
	RiskFactors   []RiskFactor  `json:"riskFactors"`
	ScoringMethod ScoringMethod `json:"scoringMethod"`
	Confidence    float64       `json:"confidence"`
	ModelVersion  string        `json:"modelVersion"`
}

// FactorTypes returns the factor types in result order.
func (r ScoreResult) FactorTypes() []string {
	types := make([]string, 0, len(r.RiskFactors))
	for _, f := range r.RiskFactors {
		types = append(types, f.Type)
	}
	return types
}
