// Package mediastore uploads generated artifacts to Cloudinary-compatible
// storage and returns their public URLs.
package mediastore

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Uploader persists image bytes and returns a public HTTPS URL.
type Uploader interface {
	Upload(ctx context.Context, image []byte, folder string) (string, error)
	Delete(ctx context.Context, publicID string) error
}

// CloudinaryClient talks to the Cloudinary upload API with signed requests.
type CloudinaryClient struct {
	baseURL    string
	cloudName  string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewCloudinaryClient constructs a new client. An empty baseURL selects the
// public API endpoint.
func NewCloudinaryClient(baseURL, cloudName, apiKey, apiSecret string) *CloudinaryClient {
	if baseURL == "" {
		baseURL = "https://api.cloudinary.com"
	}
	return &CloudinaryClient{
		baseURL:   baseURL,
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload stores image bytes in the given folder and returns the secure URL.
func (c *CloudinaryClient) Upload(ctx context.Context, image []byte, folder string) (string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	params := map[string]string{
		"folder":    folder,
		"timestamp": timestamp,
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, bytes.NewReader(image)); err != nil {
		return "", err
	}
	for key, value := range params {
		if err := writer.WriteField(key, value); err != nil {
			return "", err
		}
	}
	if err := writer.WriteField("api_key", c.apiKey); err != nil {
		return "", err
	}
	if err := writer.WriteField("signature", c.sign(params)); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mediastore: upload: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("mediastore: decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("mediastore: upload failed with status %d: %s", resp.StatusCode, parsed.Error.Message)
	}
	if parsed.SecureURL == "" {
		return "", fmt.Errorf("mediastore: upload response missing secure_url")
	}
	return parsed.SecureURL, nil
}

// Delete removes a stored image by its public ID.
func (c *CloudinaryClient) Delete(ctx context.Context, publicID string) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}

	form := make([]string, 0, len(params)+2)
	for key, value := range params {
		form = append(form, key+"="+value)
	}
	form = append(form, "api_key="+c.apiKey, "signature="+c.sign(params))

	url := fmt.Sprintf("%s/v1_1/%s/image/destroy", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(strings.Join(form, "&")))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mediastore: destroy: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("mediastore: destroy failed with status %d", resp.StatusCode)
	}
	return nil
}

// sign computes the Cloudinary request signature: the SHA1 hex digest of the
// sorted parameter string concatenated with the API secret.
func (c *CloudinaryClient) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}
	digest := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(digest[:])
}

var _ Uploader = (*CloudinaryClient)(nil)
