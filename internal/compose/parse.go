package compose

import (
	"log"
	"strconv"
	"strings"
)

const (
	durationMarker = "DURATION:"
	codeMarker     = "CODE:"
)

// ParseResponse decodes the model's freeform text into (duration, code).
//
// Protocol: a line starting with "DURATION: <number>" and a "CODE:" line
// after which everything is the candidate code verbatim. Both markers are
// matched case-insensitively. Every malformed input still yields a usable
// pair; this function never fails.
func ParseResponse(raw string, est DurationEstimator) (float64, string) {
	if est == nil {
		est = defaultEstimator
	}

	duration := 0.0
	haveDuration := false
	lines := strings.Split(raw, "\n")
	for _, line := range lines {
		rest, ok := cutMarker(line, durationMarker)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			log.Printf("compose: skipping malformed duration %q: %v", strings.TrimSpace(rest), err)
			continue
		}
		duration = v
		haveDuration = true
		break
	}

	code := ""
	haveCode := false
	for i, line := range lines {
		if _, ok := cutMarker(line, codeMarker); !ok {
			continue
		}
		code = strings.Join(lines[i+1:], "\n")
		haveCode = true
		break
	}
	if !haveCode {
		// Models occasionally drop the marker entirely; the whole
		// response is the only candidate we have.
		code = strings.TrimSpace(raw)
	}

	if strings.TrimSpace(code) == "" {
		return est.Estimate(raw), raw
	}
	if !haveDuration {
		duration = est.Estimate(code)
	}
	return duration, code
}

// cutMarker strips a case-insensitive marker prefix from a trimmed line.
func cutMarker(line, marker string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < len(marker) {
		return "", false
	}
	if !strings.EqualFold(trimmed[:len(marker)], marker) {
		return "", false
	}
	return trimmed[len(marker):], true
}
