package services

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dustinel/risk-engine/internal/alerts"
	"github.com/dustinel/risk-engine/internal/api"
	"github.com/dustinel/risk-engine/internal/engine"
	"github.com/dustinel/risk-engine/internal/repo"
	"github.com/dustinel/risk-engine/internal/utils"
)

// RiskService implements the gRPC CheckinRisk service.
type RiskService struct {
	api.UnimplementedCheckinRiskServer

	logger   *slog.Logger
	checkins *CheckinService
	scorer   *engine.Orchestrator
	alerts   *alerts.Manager
	notifier Notifier
}

// NewRiskService constructs the gRPC façade over the pipeline components.
func NewRiskService(logger *slog.Logger, checkins *CheckinService, scorer *engine.Orchestrator, manager *alerts.Manager, notifier Notifier) *RiskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskService{
		logger:   logger,
		checkins: checkins,
		scorer:   scorer,
		alerts:   manager,
		notifier: notifier,
	}
}

// SubmitCheckin runs the full check-in flow.
func (s *RiskService) SubmitCheckin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.checkins == nil {
		return nil, status.Error(codes.FailedPrecondition, "check-in service not configured")
	}
	req, err := api.FromCheckinStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := s.checkins.Submit(ctx, req)
	if err != nil {
		return nil, s.toStatus("submit check-in", err)
	}
	return encode(api.ToCheckinStruct(resp))
}

// ScoreCheckin scores a check-in without persisting anything.
func (s *RiskService) ScoreCheckin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.scorer == nil {
		return nil, status.Error(codes.FailedPrecondition, "scorer not configured")
	}
	req, err := api.FromScoreStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.scorer.Score(ctx, req)
	if err != nil {
		return nil, s.toStatus("score check-in", err)
	}
	return encode(api.ToStruct(result))
}

// EvaluateAlert applies the throttle and creates an alert when allowed.
func (s *RiskService) EvaluateAlert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.alerts == nil {
		return nil, status.Error(codes.FailedPrecondition, "alert manager not configured")
	}
	var dto api.AlertCandidateDTO
	if err := api.FromStruct(in, &dto); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if dto.Worker.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "worker.workerId is required")
	}

	decision, err := s.alerts.Evaluate(ctx, alerts.Candidate{
		CheckinID: dto.CheckinID,
		Worker:    dto.Worker,
		Level:     dto.RiskLevel,
		Factors:   dto.RiskFactors,
		Site:      dto.Site,
	})
	if err != nil {
		return nil, s.toStatus("evaluate alert", err)
	}
	return encode(api.ToStruct(api.AlertDecisionDTO{
		AlertCreated: decision.AlertCreated,
		Throttled:    decision.Throttled,
		Alert:        decision.Alert,
	}))
}

// DispatchNotifications sends an existing alert through the applicable channels.
func (s *RiskService) DispatchNotifications(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.notifier == nil {
		return nil, status.Error(codes.FailedPrecondition, "dispatcher not configured")
	}
	var dto api.DispatchDTO
	if err := api.FromStruct(in, &dto); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if dto.Alert.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "alert.id is required")
	}

	channels := s.notifier.Dispatch(ctx, dto.Worker, dto.Alert)
	return encode(api.ToStruct(api.DispatchResultDTO{NotificationsSent: channels}))
}

func (s *RiskService) toStatus(op string, err error) error {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, repo.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		s.logger.Error(op+" failed", slog.String("op", utils.OpOf(err)), slog.Any("error", err))
		return status.Error(codes.Internal, op+" failed")
	}
}

func encode(out *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
