package detect

import (
	"encoding/json"
	"fmt"
	"image"
	"regexp"
	"strings"

	"phonewatch/domain/monitor"
)

// Wire format the model is prompted to produce. Boxes are normalized [0,1].
type wireResponse struct {
	Detections []wireDetection `json:"detections"`
}

type wireDetection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        wireBox `json:"box"`
}

type wireBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// parseDetections turns a (possibly messy) model response into pixel-space
// detections for the given frame bounds. Entries with non-positive normalized
// size are dropped rather than failing the whole cycle.
func parseDetections(raw string, frame image.Rectangle) ([]monitor.RawDetection, error) {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return nil, fmt.Errorf("model returned non-JSON response")
	}
	var resp wireResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}

	w := float64(frame.Dx())
	h := float64(frame.Dy())
	var out []monitor.RawDetection
	for _, d := range resp.Detections {
		b := d.Box
		if b.W <= 0 || b.H <= 0 {
			continue
		}
		x0 := clamp01(b.X)
		y0 := clamp01(b.Y)
		x1 := clamp01(b.X + b.W)
		y1 := clamp01(b.Y + b.H)
		box := image.Rect(
			frame.Min.X+int(x0*w),
			frame.Min.Y+int(y0*h),
			frame.Min.X+int(x1*w),
			frame.Min.Y+int(y1*h),
		)
		if box.Empty() {
			continue
		}
		conf := d.Confidence
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}
		label := d.Label
		if label == "" {
			label = "smartphone"
		}
		out = append(out, monitor.RawDetection{Label: label, Confidence: conf, Box: box})
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInlineComment = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON strips code fences, comments and trailing commas that
// vision models commonly wrap around their JSON output, then keeps only the
// outermost object.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reInlineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
