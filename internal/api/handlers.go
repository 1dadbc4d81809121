package api

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dustinel/risk-engine/internal/models"
	"github.com/dustinel/risk-engine/internal/utils"
)

// CheckinDTO is the SubmitCheckin request document.
type CheckinDTO struct {
	WorkerID      string                    `json:"workerId"`
	Shift         models.ShiftType          `json:"shiftType"`
	Vision        *models.VisionObservation `json:"visionAnalysis"`
	PreviousScore *int                      `json:"previousScore,omitempty"`
	SubmittedAt   string                    `json:"timestamp,omitempty"`
}

// ScoreDTO is the ScoreCheckin request document.
type ScoreDTO struct {
	WorkerID      string                    `json:"workerId"`
	Shift         models.ShiftType          `json:"shiftType"`
	Vision        *models.VisionObservation `json:"visionAnalysis"`
	Worker        models.WorkerContext      `json:"healthProfile"`
	PreviousScore *int                      `json:"previousScore,omitempty"`
	MandatoryPPE  []string                  `json:"mandatoryPPE,omitempty"`
}

// AlertCandidateDTO is the EvaluateAlert request document.
type AlertCandidateDTO struct {
	CheckinID   string              `json:"checkinId"`
	Worker      models.Worker       `json:"worker"`
	RiskLevel   models.RiskLevel    `json:"riskLevel"`
	RiskFactors []models.RiskFactor `json:"riskFactors"`
	Site        string              `json:"site"`
}

// AlertDecisionDTO is the EvaluateAlert response document.
type AlertDecisionDTO struct {
	AlertCreated bool          `json:"alertCreated"`
	Throttled    bool          `json:"throttled"`
	Alert        *models.Alert `json:"alert,omitempty"`
}

// DispatchDTO is the DispatchNotifications request document.
type DispatchDTO struct {
	Worker models.Worker `json:"worker"`
	Alert  models.Alert  `json:"alert"`
}

// DispatchResultDTO is the DispatchNotifications response document.
type DispatchResultDTO struct {
	NotificationsSent []models.Channel `json:"notificationsSent"`
}

// FromStruct decodes a Struct document into a DTO.
func FromStruct(s *structpb.Struct, out any) error {
	if s == nil {
		return fmt.Errorf("request is nil")
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// ToStruct encodes a DTO as a Struct document.
func ToStruct(in any) (*structpb.Struct, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode response struct: %w", err)
	}
	return out, nil
}

// FromCheckinStruct maps the SubmitCheckin request into a domain CheckinRequest.
func FromCheckinStruct(s *structpb.Struct) (models.CheckinRequest, error) {
	var dto CheckinDTO
	if err := FromStruct(s, &dto); err != nil {
		return models.CheckinRequest{}, err
	}
	if dto.WorkerID == "" {
		return models.CheckinRequest{}, fmt.Errorf("workerId is required")
	}
	req := models.CheckinRequest{
		WorkerID:      dto.WorkerID,
		Shift:         dto.Shift,
		Vision:        dto.Vision,
		PreviousScore: dto.PreviousScore,
	}
	if dto.SubmittedAt != "" {
		ts, err := utils.ParseRFC3339(dto.SubmittedAt)
		if err != nil {
			return models.CheckinRequest{}, fmt.Errorf("timestamp: %w", err)
		}
		req.SubmittedAt = ts
	}
	return req, nil
}

// FromScoreStruct maps the ScoreCheckin request into a domain ScoreRequest.
func FromScoreStruct(s *structpb.Struct) (models.ScoreRequest, error) {
	var dto ScoreDTO
	if err := FromStruct(s, &dto); err != nil {
		return models.ScoreRequest{}, err
	}
	return models.ScoreRequest{
		WorkerID:      dto.WorkerID,
		Vision:        dto.Vision,
		Worker:        dto.Worker,
		Shift:         dto.Shift,
		PreviousScore: dto.PreviousScore,
		MandatoryPPE:  dto.MandatoryPPE,
	}, nil
}

// ToCheckinStruct converts a check-in response, adding the elapsed time in milliseconds.
func ToCheckinStruct(resp models.CheckinResponse) (*structpb.Struct, error) {
	out, err := ToStruct(resp)
	if err != nil {
		return nil, err
	}
	out.Fields["durationMs"] = structpb.NewNumberValue(float64(resp.Duration) / float64(time.Millisecond))
	return out, nil
}
