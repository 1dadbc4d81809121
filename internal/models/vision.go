package models

// DustLevel is the particulate level reported by the environment analysis.
type DustLevel string

const (
	DustNone    DustLevel = "NONE"
	DustLow     DustLevel = "LOW"
	DustHigh    DustLevel = "HIGH"
	DustExtreme DustLevel = "EXTREME"
)

// LightingLevel is the lighting quality reported by the environment analysis.
type LightingLevel string

const (
	LightingLow  LightingLevel = "LOW"
	LightingOK   LightingLevel = "OK"
	LightingGood LightingLevel = "GOOD"
)

// FaceObservation holds PPE and weak fatigue signals extracted from the face image.
type FaceObservation struct {
	HasMask   bool `json:"hasMask"`
	HasHelmet bool `json:"hasHelmet"`
	// FatigueSignal is the raw visual fatigue signal, not the fused fatigue level.
	FatigueSignal float64 `json:"fatigueScore"`
	EstimatedAge  int     `json:"estimatedAge"`
	Confidence    float64 `json:"confidence"`
}

// EnvironmentObservation holds scene conditions extracted from the environment image.
type EnvironmentObservation struct {
	Dust                   DustLevel     `json:"dustLevel"`
	Lighting               LightingLevel `json:"lightingLevel"`
	Hazards                []string      `json:"detectedHazards"`
	SafetyEquipmentVisible bool          `json:"safetyEquipmentVisible"`
	Clarity                float64       `json:"imageClarity"`
}

// VisionObservation is produced once per check-in by the vision collaborator.
type VisionObservation struct {
	Face        FaceObservation        `json:"face"`
	Environment EnvironmentObservation `json:"environment"`
}
