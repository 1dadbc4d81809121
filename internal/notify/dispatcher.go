package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dustinel/risk-engine/internal/engine"
	"github.com/dustinel/risk-engine/internal/metrics"
	"github.com/dustinel/risk-engine/internal/models"
)

// DefaultChannelTimeout bounds a single channel send.
const DefaultChannelTimeout = 5 * time.Second

// Notification is the channel-neutral content of an alert notification.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushSender delivers a notification to a worker's devices.
type PushSender interface {
	SendPush(ctx context.Context, deviceTokens []string, n Notification) error
}

// SMSSender delivers a text message.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, body string) error
}

// EmailSender delivers an email to one or more recipients.
type EmailSender interface {
	SendEmail(ctx context.Context, to []string, subject, body string) error
}

// Senders groups the optional transports. Nil members disable the channel.
type Senders struct {
	Push  PushSender
	SMS   SMSSender
	Email EmailSender
}

// Dispatcher fans an alert out to the channels its severity calls for.
type Dispatcher struct {
	senders     Senders
	adminEmails []string
	timeout     time.Duration
	logger      *slog.Logger
}

// NewDispatcher wires the transports.
func NewDispatcher(senders Senders, adminEmails []string, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultChannelTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		senders:     senders,
		adminEmails: append([]string(nil), adminEmails...),
		timeout:     timeout,
		logger:      logger,
	}
}

type attempt struct {
	channel models.Channel
	send    func(ctx context.Context) error
}

// Dispatch attempts every applicable channel concurrently and returns the confirmed ones
// in the order in-app, push, sms, email. It never fails; channel errors are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, worker models.Worker, alert models.Alert) []models.Channel {
	attempts := d.plan(worker, alert)
	delivered := make([]bool, len(attempts))

	var g errgroup.Group
	for i, a := range attempts {
		i, a := i, a
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			err := a.send(sendCtx)
			metrics.ObserveNotification(string(a.channel), err == nil)
			if err != nil {
				d.logger.Warn("notification channel failed",
					slog.String("channel", string(a.channel)),
					slog.String("alert_id", alert.ID),
					slog.Any("error", err))
				return nil
			}
			delivered[i] = true
			return nil
		})
	}
	_ = g.Wait()

	channels := make([]models.Channel, 0, len(attempts)+1)
	channels = append(channels, models.ChannelInApp)
	for i, a := range attempts {
		if delivered[i] {
			channels = append(channels, a.channel)
		}
	}
	return channels
}

func (d *Dispatcher) plan(worker models.Worker, alert models.Alert) []attempt {
	n := buildNotification(worker, alert)
	var attempts []attempt

	if d.senders.Push != nil && len(worker.DeviceTokens) > 0 {
		tokens := append([]string(nil), worker.DeviceTokens...)
		attempts = append(attempts, attempt{models.ChannelPush, func(ctx context.Context) error {
			return d.senders.Push.SendPush(ctx, tokens, n)
		}})
	}

	if !engine.NeedsAlert(alert.Severity) {
		return attempts
	}

	if d.senders.SMS != nil && strings.TrimSpace(worker.Phone) != "" {
		body := fmt.Sprintf("[Dustinel] %s: %s", worker.Name, alert.Message)
		attempts = append(attempts, attempt{models.ChannelSMS, func(ctx context.Context) error {
			return d.senders.SMS.SendSMS(ctx, worker.Phone, body)
		}})
	}

	if recipients := d.emailRecipients(worker); d.senders.Email != nil && len(recipients) > 0 {
		subject := fmt.Sprintf("Dustinel Alert: %s Risk Detected for %s", alert.Severity, worker.Name)
		body := emailBody(worker, alert)
		attempts = append(attempts, attempt{models.ChannelEmail, func(ctx context.Context) error {
			return d.senders.Email.SendEmail(ctx, recipients, subject, body)
		}})
	}
	return attempts
}

func (d *Dispatcher) emailRecipients(worker models.Worker) []string {
	seen := make(map[string]struct{}, len(d.adminEmails)+1)
	var out []string
	for _, addr := range append([]string{worker.Email}, d.adminEmails...) {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func buildNotification(worker models.Worker, alert models.Alert) Notification {
	return Notification{
		Title: fmt.Sprintf("%s risk alert", alert.Severity),
		Body:  alert.Message,
		Data: map[string]string{
			"alertId":  alert.ID,
			"workerId": worker.ID,
			"severity": string(alert.Severity),
			"type":     string(alert.Type),
		},
	}
}

func emailBody(worker models.Worker, alert models.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Worker: %s (%s)\n", worker.Name, worker.ID)
	if alert.Site != "" {
		fmt.Fprintf(&b, "Site: %s\n", alert.Site)
	}
	fmt.Fprintf(&b, "Severity: %s\n", alert.Severity)
	fmt.Fprintf(&b, "Time: %s\n\n", alert.CreatedAt.Format(time.RFC1123))
	b.WriteString(alert.Message)
	b.WriteString("\n")
	if len(alert.RiskFactorTypes) > 0 {
		b.WriteString("\nRisk factors:\n")
		for _, f := range alert.RiskFactorTypes {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	return b.String()
}
