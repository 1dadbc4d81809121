package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// GatewayConfig points at the communications gateway that relays SMS and email.
type GatewayConfig struct {
	BaseURL   string
	APIKey    string
	SMSPath   string
	EmailPath string
	From      string
	Timeout   time.Duration
}

// GatewayClient sends SMS and email through an HTTP/JSON communications gateway.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	smsPath    string
	emailPath  string
	from       string
	httpClient *http.Client
}

// NewGatewayClient returns nil when no base URL is configured.
func NewGatewayClient(cfg GatewayConfig) *GatewayClient {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil
	}
	if cfg.SMSPath == "" {
		cfg.SMSPath = "/sms"
	}
	if cfg.EmailPath == "" {
		cfg.EmailPath = "/email"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultChannelTimeout
	}
	return &GatewayClient{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		smsPath:    cfg.SMSPath,
		emailPath:  cfg.EmailPath,
		from:       cfg.From,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// SendSMS relays a text message.
func (c *GatewayClient) SendSMS(ctx context.Context, phone, body string) error {
	if c == nil {
		return errors.New("gateway client not initialised")
	}
	payload := map[string]any{"to": phone, "body": body}
	if err := c.postJSON(ctx, c.resolvePath(c.smsPath), payload); err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	return nil
}

// SendEmail relays a plain-text email.
func (c *GatewayClient) SendEmail(ctx context.Context, to []string, subject, body string) error {
	if c == nil {
		return errors.New("gateway client not initialised")
	}
	payload := map[string]any{"to": to, "subject": subject, "text": body}
	if c.from != "" {
		payload["from"] = c.from
	}
	if err := c.postJSON(ctx, c.resolvePath(c.emailPath), payload); err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	return nil
}

func (c *GatewayClient) resolvePath(p string) string {
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *GatewayClient) postJSON(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway returned %s", resp.Status)
	}
	return nil
}
