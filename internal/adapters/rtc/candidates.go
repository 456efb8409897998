package rtc

import "github.com/pion/webrtc/v4"

// candidateQueue holds remote candidates that arrived before the remote
// description. Not safe for concurrent use; Peer guards it with iceMu.
type candidateQueue struct {
	ready   bool
	pending []webrtc.ICECandidateInit
}

// add reports whether c can be applied right away. Otherwise c is queued.
func (q *candidateQueue) add(c webrtc.ICECandidateInit) bool {
	if q.ready {
		return true
	}
	q.pending = append(q.pending, c)
	return false
}

// drain marks the remote description as applied and hands back the queued
// candidates in arrival order.
func (q *candidateQueue) drain() []webrtc.ICECandidateInit {
	q.ready = true
	out := q.pending
	q.pending = nil
	return out
}

func (q *candidateQueue) len() int { return len(q.pending) }
