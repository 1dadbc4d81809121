package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// FeatureVector is the normalized request body sent to the remote scoring model.
type FeatureVector struct {
	WorkerID          string  `json:"workerId"`
	Age               int     `json:"age"`
	FatigueScore      float64 `json:"fatigueScore"`
	HasMask           int     `json:"hasMask"`
	HasHelmet         int     `json:"hasHelmet"`
	DustLevel         int     `json:"dustLevel"`
	LightingLevel     int     `json:"lightingLevel"`
	HazardCount       int     `json:"hazardCount"`
	ShiftType         int     `json:"shiftType"`
	PreviousScore     int     `json:"previousScore"`
	ChronicConditions int     `json:"chronicConditions"`
	BaselineScore     int     `json:"baselineScore"`
}

// RemoteFactor is a risk factor as reported by the remote model.
type RemoteFactor struct {
	Type     string  `json:"type"`
	Severity string  `json:"severity"`
	Weight   float64 `json:"weight"`
}

// RemoteScore is the raw remote model response. Pointer fields distinguish absent values.
type RemoteScore struct {
	HealthScore  *float64       `json:"healthScore"`
	RiskFactors  []RemoteFactor `json:"riskFactors"`
	Confidence   *float64       `json:"confidence"`
	ModelVersion string         `json:"modelVersion"`
}

// ModelClient calls the hosted scoring model over HTTP/JSON.
type ModelClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewModelClient returns nil when no endpoint is configured so callers can skip the remote tier.
func NewModelClient(endpoint, apiKey string, timeout time.Duration) *ModelClient {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}
	return &ModelClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Score posts the feature vector and decodes the model's answer.
func (c *ModelClient) Score(ctx context.Context, features FeatureVector) (RemoteScore, error) {
	if c == nil {
		return RemoteScore{}, fmt.Errorf("remote model client not initialised")
	}
	var out RemoteScore
	if err := c.postJSON(ctx, c.endpoint, features, &out); err != nil {
		return RemoteScore{}, fmt.Errorf("remote model request failed: %w", err)
	}
	return out, nil
}

func (c *ModelClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
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
		return fmt.Errorf("remote model returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
