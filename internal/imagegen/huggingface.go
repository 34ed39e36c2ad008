package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Defaults applied when a generation request leaves them unset.
const (
	DefaultModel  = "stabilityai/stable-diffusion-xl-base-1.0"
	defaultWidth  = 540
	defaultHeight = 540

	guidanceScale  = 7.5
	inferenceSteps = 30
	fixedSeed      = 42
)

// HuggingFaceClient calls the hosted inference API for diffusion models.
type HuggingFaceClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHuggingFaceClient constructs a new client. An empty baseURL selects the
// public inference endpoint.
func NewHuggingFaceClient(baseURL, apiKey string) *HuggingFaceClient {
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co"
	}
	return &HuggingFaceClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type hfParameters struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	GuidanceScale     float64 `json:"guidance_scale"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	Seed              int     `json:"seed"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

// TextToImage renders a prompt into PNG bytes.
func (c *HuggingFaceClient) TextToImage(ctx context.Context, req Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	width, height := req.Width, req.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	payload, err := json.Marshal(hfRequest{
		Inputs: req.Prompt,
		Parameters: hfParameters{
			Width:             width,
			Height:            height,
			GuidanceScale:     guidanceScale,
			NumInferenceSteps: inferenceSteps,
			Seed:              fixedSeed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("imagegen: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/models/%s", c.baseURL, model), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "image/png")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("imagegen: inference call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("imagegen: inference returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return io.ReadAll(resp.Body)
}

var _ Client = (*HuggingFaceClient)(nil)
