package call

import (
	"context"
	"errors"
	"testing"

	"github.com/dkeye/carecall/internal/domain"
)

func TestMediaManager_AcquireInFlight(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	mm := NewMediaManager(src)

	done := make(chan error, 1)
	go func() {
		_, err := mm.Acquire(context.Background())
		done <- err
	}()
	<-src.entered

	if _, err := mm.Acquire(context.Background()); !errors.Is(err, domain.ErrAcquireInFlight) {
		t.Errorf("second Acquire err = %v, want ErrAcquireInFlight", err)
	}
	close(src.gate)
	if err := <-done; err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if n := src.callCount(); n != 1 {
		t.Errorf("device requests = %d, want 1", n)
	}
}

func TestMediaManager_AcquireStopsPrevious(t *testing.T) {
	src := &fakeSource{}
	mm := NewMediaManager(src)

	if _, err := mm.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	first := src.lastStream()
	if _, err := mm.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if first.stopCount() != 1 {
		t.Errorf("first stream stops = %d, want 1", first.stopCount())
	}
	if mm.Stream() != src.lastStream() {
		t.Error("manager does not hold the newest stream")
	}
}

func TestMediaManager_ReleaseResetsFlags(t *testing.T) {
	src := &fakeSource{}
	mm := NewMediaManager(src)
	if _, err := mm.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	mm.SetMicEnabled(false)
	if on := mm.ToggleCamera(); on {
		t.Errorf("ToggleCamera = %v, want false", on)
	}

	mm.Release()
	mm.Release()

	if got := src.lastStream().stopCount(); got != 1 {
		t.Errorf("stops = %d, want 1", got)
	}
	if !mm.MicEnabled() || !mm.CameraEnabled() {
		t.Errorf("flags = mic %v cam %v, want true", mm.MicEnabled(), mm.CameraEnabled())
	}
	if mm.Stream() != nil {
		t.Error("stream still held after Release")
	}
}

func TestMediaManager_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"permission", domain.ErrPermissionDenied, domain.ErrPermissionDenied},
		{"unavailable", domain.ErrDeviceUnavailable, domain.ErrDeviceUnavailable},
		{"other", errors.New("driver exploded"), domain.ErrDeviceUnavailable},
		{"canceled", context.Canceled, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mm := NewMediaManager(&fakeSource{err: tt.err})
			_, err := mm.Acquire(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if mm.Stream() != nil {
				t.Error("stream held after failed Acquire")
			}
		})
	}
}
