// Package scan drives live QR scanning over a stream of video frames.
//
// A Session polls a FrameSource cooperatively, attempts a decode on each
// sampled frame, and delivers at most one payload per session. The loop
// checks liveness before scheduling the next sample and again before
// emitting a result, so a payload decoded concurrently with Stop is never
// delivered after the stop takes effect.
package scan

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/gkash-app/gkash/internal/qr"
)

// ErrSourceReleased indicates the frame source has been released and can no
// longer produce frames.
var ErrSourceReleased = errors.New("frame source released")

// FrameSource produces video frames for scanning. Implementations wrap a
// camera or any other frame producer. NextFrame blocks until a frame is
// available, the context is done, or the source is released.
type FrameSource interface {
	NextFrame(ctx context.Context) (image.Image, error)
}

// DefaultInterval approximates a display refresh rate.
const DefaultInterval = time.Second / 60

// Session is a single live scanning session. At most one payload is ever
// delivered per session.
type Session struct {
	source   FrameSource
	interval time.Duration

	mu      sync.Mutex
	stopped bool
	done    bool
}

// NewSession creates a session over the given frame source, sampling at
// interval (DefaultInterval when <= 0).
func NewSession(source FrameSource, interval time.Duration) *Session {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Session{source: source, interval: interval}
}

// Stop cancels the session cooperatively. A result produced concurrently
// with Stop is discarded, never delivered.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *Session) live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped && !s.done
}

// tryDeliver marks the session done if it is still live. Returns false when
// the session was stopped or has already delivered.
func (s *Session) tryDeliver() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.done {
		return false
	}
	s.done = true
	return true
}

// Run samples frames until a QR payload is decoded, the context is done,
// the session is stopped, or the source is released. On success it invokes
// deliver exactly once with the payload and terminates the loop.
func (s *Session) Run(ctx context.Context, deliver func(payload []byte)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		// Liveness check before scheduling the next sample.
		if !s.live() {
			return nil
		}

		frame, err := s.source.NextFrame(ctx)
		if errors.Is(err, ErrSourceReleased) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		payload, err := qr.DecodeImage(frame)
		if err == nil {
			// Liveness check again before emitting: a concurrent Stop wins.
			if s.tryDeliver() {
				deliver(payload)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
