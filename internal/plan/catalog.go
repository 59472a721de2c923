package plan

import "math"

// DurationCatalog is the provider's valid clip-duration set at the
// baseline resolution and frame rate, in ascending order.
var DurationCatalog = []int{6, 8, 10, 12, 14, 16, 18, 20}

// Quantize snaps seconds to the nearest catalog entry. Ties break toward
// the smaller value for determinism.
func Quantize(seconds float64) int {
	best := DurationCatalog[0]
	bestDiff := math.Abs(seconds - float64(best))
	for _, d := range DurationCatalog[1:] {
		diff := math.Abs(seconds - float64(d))
		if diff < bestDiff {
			best = d
			bestDiff = diff
		}
	}
	return best
}

// InCatalog reports whether d is a valid clip duration.
func InCatalog(d int) bool {
	for _, v := range DurationCatalog {
		if v == d {
			return true
		}
	}
	return false
}

// TargetClipCount derives the advisory scene count from the audio
// duration and density setting. The result is a prompt target, not a
// hard post-filter on the plan.
func TargetClipCount(totalDuration float64, density Density) int {
	base := int(totalDuration / 12)
	base = clamp(base, 4, 30)

	scaled := int(math.Round(float64(base) * density.Multiplier()))
	return clamp(scaled, 4, 40)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// consistencyGuidance renders the 0-100 consistency level as planning
// guidance text. Three bands: low (<30), mid (30-69), high (>=70).
func consistencyGuidance(level int) string {
	switch {
	case level < 30:
		return "Scenes may vary freely in subjects, environments, color and lighting; strong visual variety between scenes is welcome."
	case level < 70:
		return "Keep recurring subjects visually similar across scenes; environments, color grading and lighting may vary between scenes."
	default:
		return "Keep subjects, color palette and lighting consistent across ALL scenes; the video should read as one continuous visual world."
	}
}
