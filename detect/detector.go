// Package detect implements the object-detection boundary on top of an
// Ollama vision model. The model is asked for a JSON list of smartphone
// bounding boxes; the monitoring core never sees the prompt or transport.
package detect

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"phonewatch/domain/monitor"
)

const (
	DefaultURL   = "http://127.0.0.1:11434"
	DefaultModel = "minicpm-v"

	// requestTimeout bounds a single inference call when the caller's
	// context carries no deadline. Vision models on CPU are slow.
	requestTimeout = 120 * time.Second
)

// prompt instructs the vision model to locate smartphones. Coordinates are
// normalized so the parser can scale them to the captured frame.
const prompt = `You are a smartphone locator for screen captures.

Return JSON only:
{
  "detections": [
    {"label": "smartphone", "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ]
}

HARD RULES
- Report every visible smartphone / mobile phone, one entry per device.
- All coordinates are normalized to [0,1] (NOT pixels); the box must tightly
  enclose the device.
- confidence is your certainty in [0,1].
- If no smartphone is visible return {"detections": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// PhoneDetector asks an Ollama vision model for smartphone bounding boxes.
type PhoneDetector struct {
	client *api.Client
	model  string
	logger *slog.Logger
}

// New creates a detector against the given Ollama base URL and model name.
// Empty arguments fall back to the package defaults.
func New(ollamaURL, model string, logger *slog.Logger) (*PhoneDetector, error) {
	if ollamaURL == "" {
		ollamaURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	parsed, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url: %w", err)
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &PhoneDetector{client: api.NewClient(base, http.DefaultClient), model: model, logger: logger}, nil
}

// Detect runs one inference pass over the frame and returns the reported
// smartphone boxes in frame pixel coordinates. A transport failure or an
// unusable model response is returned as an error; the caller treats it as a
// transient cycle failure.
func (d *PhoneDetector) Detect(ctx context.Context, frame *image.RGBA) ([]monitor.RawDetection, error) {
	if frame == nil {
		return nil, fmt.Errorf("nil frame")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, requestTimeout)
		defer cancel()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: d.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(buf.Bytes())},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err := d.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	if responseContent == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	dets, err := parseDetections(responseContent, frame.Bounds())
	if err != nil {
		return nil, err
	}
	if d.logger != nil {
		d.logger.Debug("inference complete", "model", d.model, "detections", len(dets))
	}
	return dets, nil
}

var _ monitor.Detector = (*PhoneDetector)(nil)
