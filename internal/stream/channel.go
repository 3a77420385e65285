package stream

import "sync"

// keepAliveEvent marks a frame written as an SSE comment instead of a named event.
const keepAliveEvent = ""

// Channel is one subscriber's event feed. Events() yields frames until the
// channel is closed; Close is idempotent and safe from any goroutine.
type Channel struct {
	id     string
	tenant string
	events chan Event
	done   chan struct{}

	closeOnce sync.Once
	registry  *Registry
}

// Events returns the subscriber's frame feed. The channel is closed when the
// subscription ends.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Tenant returns the tenant this channel is subscribed to.
func (c *Channel) Tenant() string {
	return c.tenant
}

// Close ends the subscription and releases its poll loop.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.registry.deregister(c)
	})
}

// send delivers ev unless the subscriber is gone or its buffer is full. A
// subscriber that cannot drain its buffer loses frames rather than stalling
// the poll loop.
func (c *Channel) send(ev Event) {
	select {
	case <-c.done:
	case c.events <- ev:
	default:
	}
}
