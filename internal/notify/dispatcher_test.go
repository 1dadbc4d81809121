package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/dustinel/risk-engine/internal/models"
)

type fakePush struct {
	err    error
	tokens []string
}

func (f *fakePush) SendPush(_ context.Context, tokens []string, _ Notification) error {
	f.tokens = tokens
	return f.err
}

type fakeSMS struct {
	err   error
	phone string
	block bool
}

func (f *fakeSMS) SendSMS(ctx context.Context, phone, _ string) error {
	f.phone = phone
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

type fakeEmail struct {
	mu  sync.Mutex
	err error
	to  []string
}

func (f *fakeEmail) SendEmail(_ context.Context, to []string, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = to
	return f.err
}

func testWorker() models.Worker {
	return models.Worker{
		ID:           "w-1",
		Name:         "Ana",
		Email:        "ana@example.com",
		Phone:        "+15550100",
		DeviceTokens: []string{"dev-1"},
	}
}

func testAlert(level models.RiskLevel) models.Alert {
	return models.Alert{ID: "a-1", WorkerID: "w-1", Severity: level, Message: "flagged", CreatedAt: time.Unix(0, 0)}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchMediumUsesInAppAndPush(t *testing.T) {
	sms := &fakeSMS{}
	email := &fakeEmail{}
	d := NewDispatcher(Senders{Push: &fakePush{}, SMS: sms, Email: email}, nil, time.Second, quietLogger())

	got := d.Dispatch(context.Background(), testWorker(), testAlert(models.RiskMedium))
	want := []models.Channel{models.ChannelInApp, models.ChannelPush}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if sms.phone != "" || email.to != nil {
		t.Fatalf("sms/email must not be attempted for MEDIUM")
	}
}

func TestDispatchCriticalAllChannelsInOrder(t *testing.T) {
	email := &fakeEmail{}
	d := NewDispatcher(Senders{Push: &fakePush{}, SMS: &fakeSMS{}, Email: email},
		[]string{"safety@example.com", "ANA@example.com"}, time.Second, quietLogger())

	got := d.Dispatch(context.Background(), testWorker(), testAlert(models.RiskCritical))
	want := []models.Channel{models.ChannelInApp, models.ChannelPush, models.ChannelSMS, models.ChannelEmail}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	wantTo := []string{"ana@example.com", "safety@example.com"}
	if !reflect.DeepEqual(email.to, wantTo) {
		t.Fatalf("expected recipients %v, got %v", wantTo, email.to)
	}
}

func TestDispatchOmitsFailedChannels(t *testing.T) {
	d := NewDispatcher(Senders{
		Push:  &fakePush{err: errors.New("broker down")},
		SMS:   &fakeSMS{block: true},
		Email: &fakeEmail{},
	}, nil, 20*time.Millisecond, quietLogger())

	got := d.Dispatch(context.Background(), testWorker(), testAlert(models.RiskHigh))
	want := []models.Channel{models.ChannelInApp, models.ChannelEmail}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDispatchSkipsMissingContactDetails(t *testing.T) {
	push := &fakePush{}
	sms := &fakeSMS{}
	d := NewDispatcher(Senders{Push: push, SMS: sms}, nil, time.Second, quietLogger())

	worker := testWorker()
	worker.DeviceTokens = nil
	worker.Phone = ""
	got := d.Dispatch(context.Background(), worker, testAlert(models.RiskCritical))
	if !reflect.DeepEqual(got, []models.Channel{models.ChannelInApp}) {
		t.Fatalf("expected in-app only, got %v", got)
	}
	if push.tokens != nil || sms.phone != "" {
		t.Fatalf("push/sms must not be attempted without tokens or phone")
	}
}
