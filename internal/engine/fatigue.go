package engine

import (
	"time"

	"github.com/dustinel/risk-engine/internal/models"
	"github.com/dustinel/risk-engine/internal/utils"
)

// FatigueInput gathers the signals fused into a fatigue level.
type FatigueInput struct {
	Shift         models.ShiftType
	BaselineScore int
	PreviousScore int
	Conditions    int
	LastCheckin   *time.Time
	VisualSignal  float64
}

var shiftFatigue = map[models.ShiftType]float64{
	models.ShiftNight:     1.0,
	models.ShiftAfternoon: 0.5,
	models.ShiftMorning:   0.2,
}

// noPriorCheckinRecency is used when the worker has never checked in.
const noPriorCheckinRecency = 0.35

// EstimateFatigue fuses shift, trend, chronic-condition, recency and the weak visual
// signal into a level in [0,1], rounded to three decimals.
func EstimateFatigue(in FatigueInput, now time.Time) float64 {
	shift := shiftFatigue[in.Shift]
	trend := clamp(float64(in.BaselineScore-in.PreviousScore)/30, 0, 1)
	chronic := clamp(float64(in.Conditions)*0.25, 0, 1)

	recency := noPriorCheckinRecency
	if in.LastCheckin != nil {
		hours := utils.HoursBetween(*in.LastCheckin, now)
		recency = clamp(hours/48, 0, 1)
	}

	visual := clamp(in.VisualSignal, 0, 1)

	level := shift*0.30 + trend*0.25 + chronic*0.20 + recency*0.15 + visual*0.10
	return clamp(round3(level), 0, 1)
}
