package models

import "time"

// ShiftType identifies the shift a check-in belongs to.
type ShiftType string

const (
	ShiftMorning   ShiftType = "morning"
	ShiftAfternoon ShiftType = "afternoon"
	ShiftNight     ShiftType = "night"
)

// Valid reports whether the shift is one of the known values.
func (s ShiftType) Valid() bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftNight:
		return true
	default:
		return false
	}
}

// WorkerContext is the read-only health snapshot used while scoring a check-in.
type WorkerContext struct {
	BaselineScore int        `json:"baselineScore"`
	Conditions    []string   `json:"conditions"`
	Shift         ShiftType  `json:"shift"`
	LastCheckin   *time.Time `json:"lastCheckin,omitempty"`
	LowRiskStreak int        `json:"lowRiskStreak"`
	// CurrentRiskLevel is the level cached from the previous check-in.
	CurrentRiskLevel RiskLevel `json:"currentRiskLevel,omitempty"`
}

// Worker is the document-store record a WorkerContext is read from.
type Worker struct {
	ID             string        `json:"workerId"`
	OrganizationID string        `json:"organizationId"`
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	Phone          string        `json:"phone"`
	Site           string        `json:"site"`
	DeviceTokens   []string      `json:"deviceTokens"`
	Health         WorkerContext `json:"healthProfile"`
}
