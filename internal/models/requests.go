package models

import "time"

// ScoreRequest carries the inputs of a single scoring call.
type ScoreRequest struct {
	WorkerID string
	Vision   *VisionObservation
	Worker   WorkerContext
	Shift    ShiftType
	// PreviousScore is nil when no earlier score is known; the baseline is used instead.
	PreviousScore *int
	// MandatoryPPE overrides the configured mandatory PPE list when non-empty.
	MandatoryPPE []string
}

// EffectivePreviousScore returns the previous score, falling back to the baseline.
func (r ScoreRequest) EffectivePreviousScore() int {
	if r.PreviousScore != nil {
		return *r.PreviousScore
	}
	return r.Worker.BaselineScore
}

// CheckinRequest represents one worker check-in submitted by the orchestration layer.
type CheckinRequest struct {
	WorkerID      string
	Shift         ShiftType
	Vision        *VisionObservation
	PreviousScore *int
	SubmittedAt   time.Time
}

// CheckinResponse summarises a completed check-in.
type CheckinResponse struct {
	CheckinID       string        `json:"checkinId"`
	Score           ScoreResult   `json:"score"`
	Recommendations []string      `json:"recommendations"`
	AlertTriggered  bool          `json:"alertTriggered"`
	AlertThrottled  bool          `json:"alertThrottled"`
	AlertID         string        `json:"alertId,omitempty"`
	Channels        []Channel     `json:"notificationsSent,omitempty"`
	Duration        time.Duration `json:"-"`
}
