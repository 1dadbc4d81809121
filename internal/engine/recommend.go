package engine

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dustinel/risk-engine/internal/models"
)

//go:embed default_recommendations.yaml
var defaultRecommendationPack []byte

// DefaultMaxRecommendations caps the recommendations attached to a check-in.
const DefaultMaxRecommendations = 5

// RecommendationEngine matches a scored check-in against a prioritized rule pack.
type RecommendationEngine struct {
	rules  []RecommendationRule
	max    int
	logger *slog.Logger
}

// RecommendationRule represents a single recommendation rule.
type RecommendationRule struct {
	ID              string         `yaml:"id"`
	Priority        int            `yaml:"priority"`
	Match           RecommendMatch `yaml:"match"`
	Recommendations []string       `yaml:"recommendations"`
}

// RecommendMatch defines optional attributes for rule matching; all set attributes must hold.
type RecommendMatch struct {
	MissingPPE   []string `yaml:"missing_ppe"`
	FullPPE      bool     `yaml:"full_ppe"`
	MinFatigue   *float64 `yaml:"min_fatigue"`
	Dust         []string `yaml:"dust"`
	Lighting     []string `yaml:"lighting"`
	Hazards      []string `yaml:"hazards"`
	Shift        []string `yaml:"shift"`
	ScoreBelow   *int     `yaml:"score_below"`
	ScoreAtLeast *int     `yaml:"score_at_least"`
	Conditions   []string `yaml:"conditions"`
}

// RecommendationPack is the YAML root structure.
type RecommendationPack struct {
	Rules []RecommendationRule `yaml:"rules"`
}

// RecommendationInput is the scored check-in a recommendation pass looks at.
type RecommendationInput struct {
	Score  models.ScoreResult
	Vision models.VisionObservation
	Worker models.WorkerContext
	Shift  models.ShiftType
}

// NewRecommendationEngine loads rules from path, or the built-in pack when path is empty
// or missing.
func NewRecommendationEngine(path string, logger *slog.Logger) (*RecommendationEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data := defaultRecommendationPack
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			data = raw
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("recommendation pack not found, using built-in rules", slog.String("path", path))
		default:
			return nil, fmt.Errorf("read recommendation pack: %w", err)
		}
	}
	var pack RecommendationPack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse recommendation pack: %w", err)
	}
	rules := append([]RecommendationRule(nil), pack.Rules...)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })
	return &RecommendationEngine{rules: rules, max: DefaultMaxRecommendations, logger: logger}, nil
}

// Recommend returns up to five recommendations, highest priority first.
func (e *RecommendationEngine) Recommend(in RecommendationInput) []string {
	if e == nil {
		return nil
	}

	matched := make([]string, 0, e.max)
	for _, rule := range e.rules {
		if !rule.Match.matches(in) {
			continue
		}
		matched = appendUnique(matched, rule.Recommendations...)
		if len(matched) >= e.max {
			return matched[:e.max]
		}
	}
	return matched
}

func (m RecommendMatch) matches(in RecommendationInput) bool {
	face := in.Vision.Face
	env := in.Vision.Environment

	for _, item := range m.MissingPPE {
		switch strings.ToLower(item) {
		case "helmet":
			if face.HasHelmet {
				return false
			}
		case "mask":
			if face.HasMask {
				return false
			}
		}
	}
	if m.FullPPE && !(face.HasHelmet && face.HasMask) {
		return false
	}
	if m.MinFatigue != nil && face.FatigueSignal <= *m.MinFatigue {
		return false
	}
	if len(m.Dust) > 0 && !containsFold(m.Dust, string(env.Dust)) {
		return false
	}
	if len(m.Lighting) > 0 && !containsFold(m.Lighting, string(env.Lighting)) {
		return false
	}
	if len(m.Hazards) > 0 && !anyContained(m.Hazards, env.Hazards) {
		return false
	}
	if len(m.Shift) > 0 && !containsFold(m.Shift, string(in.Shift)) {
		return false
	}
	if m.ScoreBelow != nil && in.Score.HealthScore >= *m.ScoreBelow {
		return false
	}
	if m.ScoreAtLeast != nil && in.Score.HealthScore < *m.ScoreAtLeast {
		return false
	}
	if len(m.Conditions) > 0 && !anyContained(m.Conditions, in.Worker.Conditions) {
		return false
	}
	return true
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func anyContained(wanted, present []string) bool {
	for _, p := range present {
		if containsFold(wanted, p) {
			return true
		}
	}
	return false
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
