// Package testutil holds helpers shared by package tests.
package testutil

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// sensitiveHeaders never reach a cassette.
var sensitiveHeaders = []string{"Authorization", "X-Rh-Identity"}

// NewVCRRecorder creates a recorder for cassette dir/name. Mode defaults to
// replaying; VCR_MODE=record forces recording. real is the transport used
// while recording and may be nil. The recorder is stopped on test cleanup.
func NewVCRRecorder(t *testing.T, dir, name string, mode recorder.Mode, real http.RoundTripper) *recorder.Recorder {
	t.Helper()

	if os.Getenv("VCR_MODE") == "record" {
		mode = recorder.ModeRecording
	}

	r, err := recorder.NewAsMode(filepath.Join(dir, name), mode, real)
	if err != nil {
		t.Fatalf("Failed to create VCR recorder: %v", err)
	}

	// Don't match on request body; replays are served in recorded order.
	r.SetMatcher(func(r *http.Request, i cassette.Request) bool {
		return r.Method == i.Method && r.URL.String() == i.URL
	})
	r.AddFilter(func(i *cassette.Interaction) error {
		for _, h := range sensitiveHeaders {
			i.Request.Headers.Del(h)
		}
		return nil
	})

	t.Cleanup(func() {
		if err := r.Stop(); err != nil {
			t.Errorf("Failed to stop VCR recorder: %v", err)
		}
	})

	return r
}

// VCRHTTPClient returns an HTTP client configured to use the VCR recorder
func VCRHTTPClient(r *recorder.Recorder) *http.Client {
	return &http.Client{
		Transport: r,
	}
}
