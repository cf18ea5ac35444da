package asset

import (
	"testing"

	"reelsmith/internal/tester"
)

func TestKindFromContentType(t *testing.T) {
	tester.Eq(t, kindFromContentType("video/mp4"), "video")
	tester.Eq(t, kindFromContentType("audio/mpeg"), "audio")
	tester.Eq(t, kindFromContentType("image/png"), "image")
	tester.Eq(t, kindFromContentType("application/octet-stream"), "file")
	tester.Eq(t, kindFromContentType(""), "file")
}

func TestNewS3Store_Validation(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	tester.Err(t, err, "endpoint and bucket are required")
}
