package media

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

type chanReader struct {
	packets   chan []*rtp.Packet
	closeOnce sync.Once
	released  int
	mu        sync.Mutex
}

func newChanReader() *chanReader {
	return &chanReader{packets: make(chan []*rtp.Packet, 8)}
}

func (r *chanReader) Read() ([]*rtp.Packet, func(), error) {
	pkts, ok := <-r.packets
	if !ok {
		return nil, nil, io.EOF
	}
	return pkts, func() {
		r.mu.Lock()
		r.released++
		r.mu.Unlock()
	}, nil
}

func (r *chanReader) Close() error {
	r.closeOnce.Do(func() { close(r.packets) })
	return nil
}

type recordingWriter struct {
	mu   sync.Mutex
	seqs []uint16
}

func (w *recordingWriter) WriteRTP(p *rtp.Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seqs = append(w.seqs, p.SequenceNumber)
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seqs)
}

func pkt(seq uint16) *rtp.Packet {
	return &rtp.Packet{Header: rtp.Header{SequenceNumber: seq}}
}

func TestGatedTrack_DropsWhileDisabled(t *testing.T) {
	w := &recordingWriter{}
	g := &gatedTrack{kind: webrtc.RTPCodecTypeAudio, out: w}
	g.setEnabled(true)
	logger := zerolog.Nop()

	g.forward([]*rtp.Packet{pkt(1), pkt(2)}, logger)
	g.setEnabled(false)
	g.forward([]*rtp.Packet{pkt(3), nil, pkt(4)}, logger)
	g.setEnabled(true)
	g.forward([]*rtp.Packet{pkt(5)}, logger)

	want := []uint16{1, 2, 5}
	if len(w.seqs) != len(want) {
		t.Fatalf("written = %v, want %v", w.seqs, want)
	}
	for i := range want {
		if w.seqs[i] != want[i] {
			t.Errorf("seq[%d] = %d, want %d", i, w.seqs[i], want[i])
		}
	}
	if got := g.dropped.Load(); got != 2 {
		t.Errorf("dropped = %d, want 2", got)
	}
	if got := g.sent.Load(); got != 3 {
		t.Errorf("sent = %d, want 3", got)
	}
}

func TestGatedTrack_PumpReleasesBuffers(t *testing.T) {
	r := newChanReader()
	w := &recordingWriter{}
	g := &gatedTrack{kind: webrtc.RTPCodecTypeVideo, out: w, reader: r}
	g.setEnabled(true)

	done := make(chan struct{})
	go func() {
		g.pump(context.Background(), zerolog.Nop())
		close(done)
	}()
	r.packets <- []*rtp.Packet{pkt(1)}
	r.packets <- []*rtp.Packet{pkt(2), pkt(3)}
	_ = r.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop after reader closed")
	}
	if w.count() != 3 {
		t.Errorf("written = %d, want 3", w.count())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released != 2 {
		t.Errorf("released = %d, want 2", r.released)
	}
}

func TestStream_GatesByKindAndStopsOnce(t *testing.T) {
	audioR, videoR := newChanReader(), newChanReader()
	audio := &gatedTrack{kind: webrtc.RTPCodecTypeAudio, out: &recordingWriter{}, reader: audioR}
	video := &gatedTrack{kind: webrtc.RTPCodecTypeVideo, out: &recordingWriter{}, reader: videoR}
	audio.setEnabled(true)
	video.setEnabled(true)

	stops := 0
	s := newStream("s1", []*gatedTrack{audio, video}, func() { stops++ })

	s.SetAudioEnabled(false)
	if audio.isEnabled() {
		t.Error("audio still enabled")
	}
	if !video.isEnabled() {
		t.Error("video disabled by SetAudioEnabled")
	}
	s.SetVideoEnabled(false)
	if video.isEnabled() {
		t.Error("video still enabled")
	}

	s.Stop()
	s.Stop()
	if stops != 1 {
		t.Errorf("device release ran %d times, want 1", stops)
	}
}
