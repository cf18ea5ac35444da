package compose

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DurationEstimator infers a playback duration in seconds from candidate
// code when the model did not state one. Implementations must be pure and
// total: same input, same output, never a panic.
type DurationEstimator interface {
	Estimate(code string) float64
}

// FrameScanEstimator scans Remotion-style code for timing signals without
// parsing it. It takes the maximum frame value found across all signals and
// adds a one second buffer; with no signal at all it guesses from code
// length alone.
type FrameScanEstimator struct {
	FPS float64
}

var defaultEstimator DurationEstimator = FrameScanEstimator{FPS: ReferenceFPS}

var (
	reInterpolateList = regexp.MustCompile(`interpolate\s*\(\s*[^,()]+,\s*\[([^\]]*)\]`)
	reNumber          = regexp.MustCompile(`\d+(?:\.\d+)?`)
	reArithmetic      = regexp.MustCompile(`[+\-*/]`)
	reFrameDelay      = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*\s*-\s*(\d+(?:\.\d+)?)`)
	reFPSTimesSecs    = regexp.MustCompile(`fps\s*\*\s*(\d+(?:\.\d+)?)`)
	reSecsTimesFPS    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*\*\s*fps`)
	reFrameLiteral    = regexp.MustCompile(`(?:frame|startFrame|endFrame)\s*[=+\-<>]+\s*(\d+(?:\.\d+)?)`)
	reBareNumber      = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)
)

// Estimate implements DurationEstimator.
func (e FrameScanEstimator) Estimate(code string) float64 {
	fps := e.FPS
	if fps <= 0 {
		fps = ReferenceFPS
	}

	maxFrame := 0.0
	found := false
	note := func(frame float64) {
		if frame > maxFrame {
			maxFrame = frame
		}
		found = true
	}

	// Signal 1: numeric entries of the first array argument of an
	// interpolate() call. Entries holding arithmetic still contribute
	// their embedded literals individually.
	for _, m := range reInterpolateList.FindAllStringSubmatch(code, -1) {
		for _, entry := range strings.Split(m[1], ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			if reArithmetic.MatchString(entry) {
				for _, lit := range reNumber.FindAllString(entry, -1) {
					if v, err := strconv.ParseFloat(lit, 64); err == nil {
						note(v)
					}
				}
				continue
			}
			if v, err := strconv.ParseFloat(entry, 64); err == nil {
				note(v)
			}
		}
	}

	// Signal 2: delay-from-current-frame expressions. A spring kicked off
	// after `frame - delay` needs roughly 2.5 seconds to settle.
	for _, m := range reFrameDelay.FindAllStringSubmatch(code, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			note(v + 2.5*fps)
		}
	}

	// Signal 3: explicit fps*seconds products, either operand order.
	for _, m := range reFPSTimesSecs.FindAllStringSubmatch(code, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			note(fps * v)
		}
	}
	for _, m := range reSecsTimesFPS.FindAllStringSubmatch(code, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			note(fps * v)
		}
	}

	// Signal 4: frame variables assigned or offset by a literal.
	for _, m := range reFrameLiteral.FindAllStringSubmatch(code, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			note(v)
		}
	}

	// Last resort: any bare literal that is plausible as a frame count
	// (1 to 120 seconds at the reference rate).
	if !found {
		for _, m := range reBareNumber.FindAllStringSubmatch(code, -1) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			if v >= 30 && v <= 3600 {
				note(v)
			}
		}
	}

	if found {
		d := maxFrame/fps + 1.0
		return math.Round(d*10) / 10
	}
	return lengthTierEstimate(code)
}

// lengthTierEstimate guesses purely from code size: short snippets tend to
// be short scenes.
func lengthTierEstimate(code string) float64 {
	n := len(strings.TrimSpace(code))
	switch {
	case n < 500:
		return 5
	case n < 1500:
		return 8
	case n < 3000:
		return 12
	default:
		return 15
	}
}
