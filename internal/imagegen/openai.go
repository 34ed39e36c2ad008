package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAI image endpoint constants. DALL-E 3 only accepts a fixed set of sizes,
// so requested dimensions are ignored in favour of the square default.
const (
	openAIDefaultModel = "dall-e-3"
	openAISize         = "1024x1024"
	openAIQuality      = "standard"
)

// OpenAIClient calls the OpenAI image generation API.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewOpenAIClient constructs a new client. An empty baseURL selects the
// public API endpoint.
func NewOpenAIClient(baseURL, apiKey string) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &OpenAIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type openAIRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	Style          string `json:"style,omitempty"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type openAIResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// TextToImage renders a prompt into image bytes via DALL-E.
func (c *OpenAIClient) TextToImage(ctx context.Context, req Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = openAIDefaultModel
	}
	payload, err := json.Marshal(openAIRequest{
		Model:          model,
		Prompt:         req.Prompt,
		Size:           openAISize,
		Quality:        openAIQuality,
		Style:          req.Style,
		N:              1,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, fmt.Errorf("imagegen: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("imagegen: openai call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("imagegen: openai returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var parsed openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("imagegen: decode response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("imagegen: openai returned no images")
	}
	img, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("imagegen: decode image payload: %w", err)
	}
	return img, nil
}

var _ Client = (*OpenAIClient)(nil)
