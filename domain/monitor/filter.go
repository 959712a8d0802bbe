package monitor

import (
	"phonewatch/domain/zone"
)

// FilterDetections returns the detections that are actionable: confidence at
// or above threshold and not suppressed by any exclusion zone. A detection is
// suppressed when its maximum overlap ratio across zones exceeds
// overlapTolerance, where the ratio is intersection area divided by the
// detection box area. With the default tolerance of 0 any positive-area
// overlap suppresses; boxes that merely touch a zone edge have a zero-area
// intersection and pass through. Input order is preserved.
//
// The function is pure: no I/O, no shared state.
func FilterDetections(raw []RawDetection, zones []zone.ExclusionZone, threshold, overlapTolerance float64) []ActionableDetection {
	var out []ActionableDetection
	for _, det := range raw {
		box := det.Box.Canon()
		area := box.Dx() * box.Dy()
		if area <= 0 {
			continue
		}
		maxRatio := 0.0
		for _, z := range zones {
			inter := box.Intersect(z.Bounds())
			ratio := float64(inter.Dx()*inter.Dy()) / float64(area)
			if ratio > maxRatio {
				maxRatio = ratio
			}
		}
		if maxRatio > overlapTolerance {
			continue
		}
		if det.Confidence < threshold {
			continue
		}
		out = append(out, ActionableDetection{RawDetection: det})
	}
	return out
}
