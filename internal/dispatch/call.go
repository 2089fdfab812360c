package dispatch

import (
	"context"
	"time"

	"github.com/riftwatch/riftwatch/internal/events"
	"github.com/riftwatch/riftwatch/internal/protocol"
	"github.com/riftwatch/riftwatch/internal/world"
)

// Call is what a handler sees for one message.
type Call struct {
	Envelope *protocol.Envelope
	Params   *protocol.Parameters
	World    *world.Registry

	ctx   context.Context
	name  string
	bus   *events.EventBus
	clock func() time.Time
}

// Name returns the handler name the message was routed to.
func (c *Call) Name() string {
	return c.name
}

// Emit raises a domain event stamped with the current zone and time.
func (c *Call) Emit(eventType events.EventType, payload interface{}) {
	if c.bus == nil {
		return
	}
	loc := c.World.Location()
	c.bus.Emit(c.ctx, events.Event{
		Type:       eventType,
		Source:     c.name,
		ObservedAt: c.clock(),
		Cluster:    loc.Cluster,
		Region:     loc.Region,
		Payload:    payload,
	})
}
