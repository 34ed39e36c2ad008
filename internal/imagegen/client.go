// Package imagegen wraps the external text-to-image providers. The pipeline
// is a single sequential call per request: no retries, no concurrency.
package imagegen

import "context"

// Request describes one text-to-image invocation.
type Request struct {
	Prompt string
	Width  int
	Height int
	Model  string
	Style  string
}

// Client generates an image for a prompt and returns the raw encoded bytes.
type Client interface {
	TextToImage(ctx context.Context, req Request) ([]byte, error)
}
