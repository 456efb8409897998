package rtc

import (
	"sync/atomic"

	"github.com/dkeye/carecall/internal/core"
)

type SinkState int32

const (
	SinkStateOk SinkState = iota
	SinkStateMuted
	SinkStateDelete
)

// outSink is one consumer of a remote stream.
type outSink struct {
	sink  core.RTPSink
	state atomic.Int32 // Zero by default (SinkStateOk)
}

func newOutSink(sink core.RTPSink) *outSink {
	return &outSink{sink: sink}
}

func (o *outSink) State() SinkState { return SinkState(o.state.Load()) }

func (o *outSink) MarkOk()     { o.state.Store(int32(SinkStateOk)) }
func (o *outSink) MarkMuted()  { o.state.Store(int32(SinkStateMuted)) }
func (o *outSink) MarkDelete() { o.state.Store(int32(SinkStateDelete)) }
