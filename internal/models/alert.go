package models

import "time"

// AlertType groups alerts for throttling purposes.
type AlertType string

const (
	AlertHealthRisk        AlertType = "HEALTH_RISK"
	AlertPPEViolation      AlertType = "PPE_VIOLATION"
	AlertEnvironmentHazard AlertType = "ENVIRONMENT_HAZARD"
	AlertFatigue           AlertType = "FATIGUE"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertOpen     AlertStatus = "OPEN"
	AlertResolved AlertStatus = "RESOLVED"
)

// Channel names a notification channel.
type Channel string

const (
	ChannelInApp Channel = "in-app"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Alert is raised for HIGH and CRITICAL check-ins that pass the throttle.
type Alert struct {
	ID                string      `json:"id"`
	OrganizationID    string      `json:"organizationId"`
	WorkerID          string      `json:"workerId"`
	WorkerName        string      `json:"workerName"`
	CheckinID         string      `json:"checkinId"`
	CreatedAt         time.Time   `json:"timestamp"`
	Severity          RiskLevel   `json:"severity"`
	Type              AlertType   `json:"type"`
	Message           string      `json:"message"`
	RiskFactorTypes   []string    `json:"riskFactors"`
	Site              string      `json:"site"`
	Status            AlertStatus `json:"status"`
	NotificationsSent []Channel   `json:"notificationsSent"`
}

// HealthRecord is the persisted outcome of a single check-in.
type HealthRecord struct {
	ID              string            `json:"id"`
	WorkerID        string            `json:"workerId"`
	OrganizationID  string            `json:"organizationId"`
	CreatedAt       time.Time         `json:"timestamp"`
	Shift           ShiftType         `json:"shiftType"`
	Site            string            `json:"site"`
	Vision          VisionObservation `json:"visionAnalysis"`
	Score           ScoreResult       `json:"mlAnalysis"`
	Recommendations []string          `json:"recommendations"`
	AlertID         *string           `json:"alertId,omitempty"`
}
