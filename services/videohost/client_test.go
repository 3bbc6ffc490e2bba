package videohost

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestIsRetryableStatusCode(t *testing.T) {
	retryable := []int{408, 429, 500, 502, 503}
	for _, code := range retryable {
		if !IsRetryableStatusCode(code) {
			t.Errorf("status %d should be retryable", code)
		}
	}

	final := []int{200, 201, 400, 401, 403, 404}
	for _, code := range final {
		if IsRetryableStatusCode(code) {
			t.Errorf("status %d should not be retryable", code)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	config := RetryConfig{
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}

	if got := CalculateBackoff(0, config); got != 500*time.Millisecond {
		t.Errorf("attempt 0 backoff = %v", got)
	}
	if got := CalculateBackoff(1, config); got != time.Second {
		t.Errorf("attempt 1 backoff = %v", got)
	}
	// 500ms * 2^3 exceeds the cap
	if got := CalculateBackoff(3, config); got != 2*time.Second {
		t.Errorf("attempt 3 backoff = %v, want cap", got)
	}
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		APIToken: "test-token",
		BaseURL:  baseURL,
		RetryConfig: &RetryConfig{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
	})
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/v1/videos" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
		}
		if got := r.FormValue("title"); got != "Intro" {
			t.Errorf("title field = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(videoPayload{ID: "vid-abc", State: StateProcessing})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	video, err := client.Upload(context.Background(), UploadRequest{
		Title:    "Intro",
		FileName: "intro.mp4",
		Body:     strings.NewReader("fake video bytes"),
		Size:     16,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if video.ID != "vid-abc" || video.State != StateProcessing {
		t.Errorf("video = %+v", video)
	}
}

func TestGetVideoRetriesTransientFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(videoPayload{
			ID:          "vid-abc",
			State:       StateSucceeded,
			PlaybackURL: "https://cdn.example.com/vid-abc/master.m3u8",
			DurationSec: 90.5,
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	video, err := client.GetVideo(context.Background(), "vid-abc")
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if video.State != StateSucceeded {
		t.Errorf("State = %q", video.State)
	}
	if video.Duration != 90500*time.Millisecond {
		t.Errorf("Duration = %v", video.Duration)
	}
}

func TestGetVideoNotFoundIsFinal(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if _, err := client.GetVideo(context.Background(), "missing"); err != ErrVideoNotFound {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, a 404 must not be retried", calls)
	}
}

func TestGetVideoGivesUpAfterRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if _, err := client.GetVideo(context.Background(), "vid-abc"); err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
