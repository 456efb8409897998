package main

import (
	"sync/atomic"

	"github.com/pion/rtp"
)

// packetCounter is the RTP sink the terminal endpoint uses in place of a renderer.
type packetCounter struct {
	packets atomic.Uint64
	bytes   atomic.Uint64
}

func (c *packetCounter) WriteRTP(p *rtp.Packet) error {
	c.packets.Add(1)
	c.bytes.Add(uint64(len(p.Payload)))
	return nil
}

func (c *packetCounter) reset() {
	c.packets.Store(0)
	c.bytes.Store(0)
}
