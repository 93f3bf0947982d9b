package scan

import (
	"bytes"
	"context"
	"image"
	_ "image/png"
	"sync"
	"testing"
	"time"

	"github.com/gkash-app/gkash/internal/qr"
)

// fakeSource serves a fixed sequence of frames, then blocks until the
// context is cancelled or reports release.
type fakeSource struct {
	mu       sync.Mutex
	frames   []image.Image
	served   int
	released bool
}

func (f *fakeSource) NextFrame(ctx context.Context) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return nil, ErrSourceReleased
	}
	if f.served < len(f.frames) {
		frame := f.frames[f.served]
		f.served++
		return frame, nil
	}
	// No more frames: keep producing blanks until cancelled.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return blankFrame(), nil
}

func (f *fakeSource) release() {
	f.mu.Lock()
	f.released = true
	f.mu.Unlock()
}

func (f *fakeSource) framesServed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.served
}

func blankFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 64, 64))
}

func qrFrame(t *testing.T, payload string) image.Image {
	t.Helper()
	png, err := qr.Render([]byte(payload), 256)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(png))
	if err != nil {
		t.Fatalf("decode rendered PNG: %v", err)
	}
	return img
}

func TestSessionDecodesThirdFrameAndStops(t *testing.T) {
	payload := `{"merchantId":1,"amount":75.5,"timestamp":"2024-03-01T10:00:00Z"}`
	source := &fakeSource{frames: []image.Image{
		blankFrame(),
		blankFrame(),
		qrFrame(t, payload),
		qrFrame(t, payload), // must never be sampled
	}}

	session := NewSession(source, time.Millisecond)

	var delivered [][]byte
	err := session.Run(context.Background(), func(p []byte) {
		delivered = append(delivered, p)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(delivered) != 1 {
		t.Fatalf("delivered %d payloads, want exactly 1", len(delivered))
	}
	if !bytes.Equal(delivered[0], []byte(payload)) {
		t.Errorf("payload = %s, want %s", delivered[0], payload)
	}
	if served := source.framesServed(); served != 3 {
		t.Errorf("sampled %d frames, want 3 (loop must stop on first decode)", served)
	}
}

func TestSessionStopBeforeRunDeliversNothing(t *testing.T) {
	payload := `{"merchantId":1,"amount":10,"timestamp":"2024-03-01T10:00:00Z"}`
	source := &fakeSource{frames: []image.Image{qrFrame(t, payload)}}

	session := NewSession(source, time.Millisecond)
	session.Stop()

	delivered := 0
	err := session.Run(context.Background(), func([]byte) { delivered++ })
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if delivered != 0 {
		t.Errorf("stopped session delivered %d payloads, want 0", delivered)
	}
	if served := source.framesServed(); served != 0 {
		t.Errorf("stopped session sampled %d frames, want 0", served)
	}
}

func TestSessionContextCancellation(t *testing.T) {
	source := &fakeSource{} // only blank frames
	session := NewSession(source, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- session.Run(ctx, func([]byte) {
			t.Error("delivered payload from blank frames")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not terminate after cancellation")
	}
}

func TestSessionReleasedSourceTerminates(t *testing.T) {
	source := &fakeSource{}
	source.release()

	session := NewSession(source, time.Millisecond)
	err := session.Run(context.Background(), func([]byte) {
		t.Error("delivered payload from released source")
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestSessionSecondRunAfterDeliveryDeliversNothing(t *testing.T) {
	payload := `{"merchantId":1,"amount":10,"timestamp":"2024-03-01T10:00:00Z"}`
	source := &fakeSource{frames: []image.Image{qrFrame(t, payload), qrFrame(t, payload)}}

	session := NewSession(source, time.Millisecond)

	delivered := 0
	if err := session.Run(context.Background(), func([]byte) { delivered++ }); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// A session delivers at most once, even if more decodable frames arrive.
	if err := session.Run(context.Background(), func([]byte) { delivered++ }); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if delivered != 1 {
		t.Errorf("delivered %d payloads across runs, want exactly 1", delivered)
	}
}
