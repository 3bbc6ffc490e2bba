package videohost

import (
	"context"
	"errors"
	"io"
	"time"
)

// Provider-side processing states
const (
	StateProcessing = "processing"
	StateSucceeded  = "succeeded"
	StateFailed     = "failed"
)

// ErrVideoNotFound is returned when the host has no record of the video ID.
// Freshly uploaded videos may report this for a while before they appear.
var ErrVideoNotFound = errors.New("video not found on hosting provider")

// Video is the host's view of an uploaded video
type Video struct {
	ID          string        `json:"id"`
	State       string        `json:"state"`
	PlaybackURL string        `json:"playback_url"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// UploadRequest describes a video to upload
type UploadRequest struct {
	Title    string
	FileName string
	Body     io.Reader
	Size     int64
}

// Host is the capability the lesson service needs from a video hosting
// provider. Implementations must be safe for concurrent use.
type Host interface {
	Upload(ctx context.Context, req UploadRequest) (*Video, error)
	GetVideo(ctx context.Context, id string) (*Video, error)
}
