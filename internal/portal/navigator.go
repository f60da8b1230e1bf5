package portal

import (
	"context"
	"sync"
	"time"
)

// Redirect is a navigation request issued by a guard or by logout
type Redirect struct {
	Path string    `json:"path"`
	At   time.Time `json:"at"`
}

// RedirectRecorder remembers the most recent navigation request so the
// front-end can follow it.
type RedirectRecorder struct {
	mu   sync.RWMutex
	last Redirect
}

// NewRedirectRecorder creates an empty recorder
func NewRedirectRecorder() *RedirectRecorder {
	return &RedirectRecorder{}
}

// Navigate records path
func (r *RedirectRecorder) Navigate(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = Redirect{Path: path, At: time.Now().UTC()}
	return nil
}

// Last returns the latest redirect, if any
func (r *RedirectRecorder) Last() (Redirect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.last.Path != ""
}
