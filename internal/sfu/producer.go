package sfu

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Ruletka/internal/core"
)

// Producer is media published by one peer: the adopted remote track
// plus the relay fanning its RTP out to consumers.
type Producer struct {
	id     string
	kind   string
	src    *webrtc.TrackRemote
	router *Router
	relay  *relay

	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (p *Producer) ID() string   { return p.id }
func (p *Producer) Kind() string { return p.kind }

func (p *Producer) Close() {
	p.closeOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.relay.markAllDelete()
		p.router.removeProducer(p.id)
	})
}

// Consumer is one peer's subscription to a producer. Closing it only
// detaches the out track; the producer keeps running for its owner.
type Consumer struct {
	id         string
	producerID string
	kind       string
	params     core.RTPParameters
	relay      *relay

	closeOnce sync.Once
}

func (c *Consumer) ID() string                     { return c.id }
func (c *Consumer) ProducerID() string             { return c.producerID }
func (c *Consumer) Kind() string                   { return c.kind }
func (c *Consumer) Parameters() core.RTPParameters { return c.params }

func (c *Consumer) Close() {
	c.closeOnce.Do(func() {
		c.relay.removeOut(c.id)
	})
}
