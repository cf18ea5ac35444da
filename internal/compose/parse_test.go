package compose

import (
	"strings"
	"testing"

	"reelsmith/internal/tester"
)

// fixedEstimator lets parser tests observe when estimation was needed.
type fixedEstimator struct {
	value float64
	calls int
}

func (f *fixedEstimator) Estimate(string) float64 {
	f.calls++
	return f.value
}

func TestParseResponse_WellFormed(t *testing.T) {
	est := &fixedEstimator{value: 99}
	d, code := ParseResponse("DURATION: 7.5\nCODE:\nconst a = 1;\nconst b = 2;", est)
	tester.Eq(t, d, 7.5)
	tester.Eq(t, code, "const a = 1;\nconst b = 2;")
	tester.Eq(t, est.calls, 0, "estimator must not run when a duration is present")
}

func TestParseResponse_MarkersAreCaseInsensitive(t *testing.T) {
	d, code := ParseResponse("duration: 4\ncode:\nx", &fixedEstimator{})
	tester.Eq(t, d, 4.0)
	tester.Eq(t, code, "x")
}

func TestParseResponse_NoMarkersFallsBackToWholeText(t *testing.T) {
	est := &fixedEstimator{value: 6}
	raw := "  just some text the model produced  "
	d, code := ParseResponse(raw, est)
	tester.Eq(t, code, strings.TrimSpace(raw))
	tester.Eq(t, d, 6.0)
	tester.Eq(t, est.calls, 1)
}

func TestParseResponse_MalformedDurationIsSkipped(t *testing.T) {
	est := &fixedEstimator{value: 3}
	d, code := ParseResponse("DURATION: banana\nCODE:\nconst a = 1;", est)
	tester.Eq(t, code, "const a = 1;")
	tester.Eq(t, d, 3.0, "malformed duration falls through to estimation")
}

func TestParseResponse_SecondDurationLineStillCounts(t *testing.T) {
	d, _ := ParseResponse("DURATION: nope\nDURATION: 12\nCODE:\nx", &fixedEstimator{})
	tester.Eq(t, d, 12.0)
}

func TestParseResponse_EmptyCodeReturnsRawText(t *testing.T) {
	est := &fixedEstimator{value: 2}
	raw := "DURATION: 5\nCODE:\n   \n"
	d, code := ParseResponse(raw, est)
	tester.Eq(t, code, raw, "empty code falls back to the raw response")
	tester.Eq(t, d, 2.0)
	tester.Eq(t, est.calls, 1)
}

func TestParseResponse_CodeIsVerbatimAfterMarker(t *testing.T) {
	_, code := ParseResponse("CODE:\n  indented\n\ntrailing", &fixedEstimator{})
	tester.Eq(t, code, "  indented\n\ntrailing")
}
