package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dustinel/risk-engine/internal/models"
)

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("new struct: %v", err)
	}
	return s
}

func TestFromCheckinStruct(t *testing.T) {
	s := mustStruct(t, map[string]any{
		"workerId":      "w-1",
		"shiftType":     "night",
		"previousScore": 72,
		"timestamp":     "2025-03-01T08:00:00Z",
		"visionAnalysis": map[string]any{
			"face":        map[string]any{"hasMask": true, "hasHelmet": false, "fatigueScore": 0.4, "confidence": 0.9},
			"environment": map[string]any{"dustLevel": "HIGH", "lightingLevel": "OK", "detectedHazards": []any{"wet_floor"}, "imageClarity": 0.8},
		},
	})

	req, err := FromCheckinStruct(s)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.WorkerID != "w-1" || req.Shift != models.ShiftNight {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.PreviousScore == nil || *req.PreviousScore != 72 {
		t.Fatalf("unexpected previous score: %v", req.PreviousScore)
	}
	if req.Vision == nil || req.Vision.Face.HasHelmet || req.Vision.Environment.Dust != models.DustHigh {
		t.Fatalf("unexpected vision: %+v", req.Vision)
	}
	if len(req.Vision.Environment.Hazards) != 1 || req.Vision.Environment.Hazards[0] != "wet_floor" {
		t.Fatalf("unexpected hazards: %v", req.Vision.Environment.Hazards)
	}
	if !req.SubmittedAt.Equal(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp: %s", req.SubmittedAt)
	}
}

func TestFromCheckinStructRequiresWorker(t *testing.T) {
	if _, err := FromCheckinStruct(mustStruct(t, map[string]any{"shiftType": "morning"})); err == nil {
		t.Fatalf("expected error for missing workerId")
	}
	if _, err := FromCheckinStruct(nil); err == nil {
		t.Fatalf("expected error for nil request")
	}
}

func TestToCheckinStruct(t *testing.T) {
	resp := models.CheckinResponse{
		CheckinID: "chk-1",
		Score: models.ScoreResult{
			HealthScore:   35,
			RiskLevel:     models.RiskCritical,
			ScoringMethod: models.MethodEnsemble,
			RiskFactors:   []models.RiskFactor{{Type: "NO_MASK", Severity: models.SeverityHigh, Weight: 0.35, Source: models.SourceEnsemble}},
		},
		AlertTriggered: true,
		AlertID:        "a-1",
		Channels:       []models.Channel{models.ChannelInApp, models.ChannelSMS},
		Duration:       1500 * time.Millisecond,
	}

	s, err := ToCheckinStruct(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Fields["durationMs"].GetNumberValue(); got != 1500 {
		t.Fatalf("unexpected durationMs %v", got)
	}
	score := s.Fields["score"].GetStructValue()
	if score.Fields["riskLevel"].GetStringValue() != "CRITICAL" {
		t.Fatalf("unexpected score payload: %v", score)
	}
	channels := s.Fields["notificationsSent"].GetListValue().GetValues()
	if len(channels) != 2 || channels[1].GetStringValue() != "sms" {
		t.Fatalf("unexpected channels: %v", channels)
	}
}

type echoServer struct {
	UnimplementedCheckinRiskServer
}

func (echoServer) ScoreCheckin(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in.Fields["workerId"].GetStringValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "workerId is required")
	}
	return in, nil
}

func TestServiceDescRoundTrip(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterCheckinRiskServer(srv, echoServer{})
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := NewCheckinRiskClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := client.Invoke(ctx, "ScoreCheckin", mustStruct(t, map[string]any{"workerId": "w-1"}))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out.Fields["workerId"].GetStringValue() != "w-1" {
		t.Fatalf("unexpected echo: %v", out)
	}

	_, err = client.Invoke(ctx, "ScoreCheckin", mustStruct(t, map[string]any{}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}

	_, err = client.Invoke(ctx, "EvaluateAlert", mustStruct(t, map[string]any{}))
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("expected unimplemented, got %v", err)
	}
}

func TestOpsRouterReadiness(t *testing.T) {
	healthy := NewOpsRouter(map[string]ReadinessCheck{
		"store": func(context.Context) error { return nil },
	})
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	failing := NewOpsRouter(map[string]ReadinessCheck{
		"store": func(context.Context) error { return errors.New("down") },
	})
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("liveness should not depend on readiness, got %d", rec.Code)
	}
}
