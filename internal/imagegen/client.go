// Package imagegen implements the image generation worker (spec.md
// §4.5): claim a detected token, call the external text-to-image
// service, transition to uploading with the resulting URL.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NikitaPirate/Glisk/internal/classify"
)

// httpTimeout matches spec.md §5 "external HTTP calls use 30s client
// timeouts."
const httpTimeout = 30 * time.Second

// Client calls a Replicate-shaped synchronous-prediction text-to-image
// API (internal/imagegen is grounded on
// original_source/.../replicate_client.py, adapted to Go's net/http —
// no ecosystem HTTP client library appears anywhere in the pack for this
// concern, so the standard library is used directly; DESIGN.md records
// this as the stdlib justification).
type Client struct {
	http    *http.Client
	apiToken string
	modelID  string
}

func NewClient(apiToken, modelID string) *Client {
	return &Client{
		http:     &http.Client{Timeout: httpTimeout},
		apiToken: apiToken,
		modelID:  modelID,
	}
}

type predictionRequest struct {
	Input map[string]string `json:"input"`
}

type predictionResponse struct {
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	Status string          `json:"status"`
}

// Generate submits prompt and returns the CDN-hosted image URL
// (spec.md §4.5 step 4). Errors are classified per §7.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiToken == "" {
		return "", classify.Permanent("imagegen.Generate", fmt.Errorf("image API token not configured"))
	}

	body, err := json.Marshal(predictionRequest{Input: map[string]string{"prompt": prompt}})
	if err != nil {
		return "", classify.Permanent("imagegen.Generate.marshal", err)
	}

	url := fmt.Sprintf("https://api.replicate.com/v1/models/%s/predictions", c.modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", classify.Permanent("imagegen.Generate.request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classify.Transient("imagegen.Generate", err)
	}
	defer resp.Body.Close()

	var pred predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		if resp.StatusCode >= 400 {
			return "", classify.FromHTTPStatus("imagegen.Generate", resp.StatusCode, err)
		}
		return "", classify.Permanent("imagegen.Generate.decode", err)
	}

	if resp.StatusCode >= 400 || pred.Error != "" {
		return "", classifyPredictionError(resp.StatusCode, pred.Error)
	}

	url2, err := extractImageURL(pred.Output)
	if err != nil {
		return "", classify.Permanent("imagegen.Generate.output", err)
	}
	return url2, nil
}

func classifyPredictionError(status int, msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "content policy") || strings.Contains(lower, "nsfw") ||
		strings.Contains(lower, "safety") || strings.Contains(lower, "inappropriate"):
		return classify.ContentPolicy("imagegen.Generate", fmt.Errorf("content policy violation: %s", msg))
	default:
		if err := classify.FromHTTPStatus("imagegen.Generate", status, fmt.Errorf("%s", msg)); err != nil {
			return err
		}
		return classify.Transient("imagegen.Generate", fmt.Errorf("prediction failed: %s", msg))
	}
}

// extractImageURL handles both output shapes Replicate-style APIs use: a
// bare string, or a one-element array of strings (model-dependent, per
// the original client's comment "format varies by model").
func extractImageURL(raw json.RawMessage) (string, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil && asString != "" {
		return asString, nil
	}
	var asArray []string
	if err := json.Unmarshal(raw, &asArray); err == nil && len(asArray) > 0 {
		return asArray[0], nil
	}
	return "", fmt.Errorf("unexpected output format: %s", string(raw))
}
