package videohost

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Host implementation for tests. Videos uploaded to it
// start in processing; tests drive state transitions explicitly.
type Fake struct {
	mu     sync.Mutex
	videos map[string]*Video
	nextID int

	// UploadErr, when set, makes Upload fail
	UploadErr error
	// Hidden IDs report ErrVideoNotFound from GetVideo
	hidden map[string]bool
}

// NewFake creates an empty fake host
func NewFake() *Fake {
	return &Fake{
		videos: make(map[string]*Video),
		hidden: make(map[string]bool),
	}
}

// Upload stores the video in processing state
func (f *Fake) Upload(ctx context.Context, req UploadRequest) (*Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UploadErr != nil {
		return nil, f.UploadErr
	}

	f.nextID++
	v := &Video{
		ID:    fmt.Sprintf("vid-%d", f.nextID),
		State: StateProcessing,
	}
	f.videos[v.ID] = v

	copy := *v
	return &copy, nil
}

// GetVideo returns the stored video or ErrVideoNotFound
func (f *Fake) GetVideo(ctx context.Context, id string) (*Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.hidden[id] {
		return nil, ErrVideoNotFound
	}
	v, ok := f.videos[id]
	if !ok {
		return nil, ErrVideoNotFound
	}

	copy := *v
	return &copy, nil
}

// SetState moves a video into the given state
func (f *Fake) SetState(id, state string, playbackURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.videos[id]
	if !ok {
		v = &Video{ID: id}
		f.videos[id] = v
	}
	v.State = state
	v.PlaybackURL = playbackURL
	if state == StateFailed {
		v.Error = "encoding failed"
	}
}

// Hide makes GetVideo report the video as missing, simulating ingestion lag
func (f *Fake) Hide(id string, hidden bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden[id] = hidden
}
