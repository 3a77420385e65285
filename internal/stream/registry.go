// Package stream turns the lead event log into per-subscriber change
// notifications, delivered to HTTP clients as Server-Sent Events.
//
// Change detection is a poll against the latest-event cursor per tenant. The
// first poll after subscribing establishes a baseline and is never emitted as
// a change; only movement of the cursor after that baseline produces a
// lead_created event.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	leaddomain "leadpulse/backend/internal/lead/domain"
)

// Event is one frame delivered to a subscriber. Name maps to the SSE event
// field; Data is the JSON payload.
type Event struct {
	Name string
	Data []byte
}

// LatestReader reads the per-tenant change cursor.
type LatestReader interface {
	LatestByTenant(ctx context.Context, tenantKey string) (*leaddomain.Summary, error)
}

const (
	// DefaultPollInterval is the cursor poll cadence.
	DefaultPollInterval = time.Second
	// DefaultKeepAliveInterval is the comment-frame cadence that keeps idle
	// connections open through proxies.
	DefaultKeepAliveInterval = 15 * time.Second
)

// channelBuffer bounds undelivered frames per subscriber. A subscriber that
// cannot drain its buffer loses frames rather than stalling the poller.
const channelBuffer = 16

// Registry owns all active subscriptions. It carries no global state; the
// server constructs one and threads it through to the SSE handler.
type Registry struct {
	reader            LatestReader
	pollInterval      time.Duration
	keepAliveInterval time.Duration

	mu       sync.Mutex
	channels map[string]*Channel
	closed   bool
}

// NewRegistry returns a registry polling reader at pollInterval and emitting
// keep-alives at keepAliveInterval. Non-positive intervals fall back to the
// package defaults.
func NewRegistry(reader LatestReader, pollInterval, keepAliveInterval time.Duration) *Registry {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if keepAliveInterval <= 0 {
		keepAliveInterval = DefaultKeepAliveInterval
	}
	return &Registry{
		reader:            reader,
		pollInterval:      pollInterval,
		keepAliveInterval: keepAliveInterval,
		channels:          make(map[string]*Channel),
	}
}

// Subscribe registers a new subscriber for the tenant and starts its poll
// loop. The first frame on the channel is the ready event. The caller must
// Close the returned channel when done.
func (r *Registry) Subscribe(tenantKey string) *Channel {
	ch := &Channel{
		id:       uuid.New().String(),
		tenant:   tenantKey,
		events:   make(chan Event, channelBuffer),
		done:     make(chan struct{}),
		registry: r,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(ch.events)
		return ch
	}
	r.channels[ch.id] = ch
	r.mu.Unlock()

	ready, _ := json.Marshal(map[string]any{
		"ok":     true,
		"tenant": tenantKey,
		"ts":     time.Now().UTC().Format(time.RFC3339),
	})
	ch.events <- Event{Name: "ready", Data: ready}

	go r.run(ch)
	return ch
}

// CloseAll shuts down every subscription; used on server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	channels := make([]*Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		channels = append(channels, ch)
	}
	r.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
}

func (r *Registry) deregister(ch *Channel) {
	r.mu.Lock()
	delete(r.channels, ch.id)
	r.mu.Unlock()
}

// run is the per-subscriber poll loop and the sole writer of ch.events after
// the ready frame. It closes ch.events on return.
func (r *Registry) run(ch *Channel) {
	defer close(ch.events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-ch.done
		cancel()
	}()

	// Baseline immediately so a lead arriving right after subscribe is not
	// folded into the first poll. An empty tenant baselines at the empty
	// cursor, which makes the tenant's first-ever lead a visible change.
	lastID, ok := r.readCursor(ctx, ch)
	baselined := ok

	poll := time.NewTicker(r.pollInterval)
	defer poll.Stop()
	keepAlive := time.NewTicker(r.keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ch.done:
			return
		case <-keepAlive.C:
			ch.send(Event{Name: keepAliveEvent})
		case <-poll.C:
			summary, err := r.reader.LatestByTenant(ctx, ch.tenant)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("stream: poll tenant %s: %v", ch.tenant, err)
				data, _ := json.Marshal(map[string]any{"ok": false, "error": "poll failed"})
				ch.send(Event{Name: "error", Data: data})
				continue
			}
			currentID := ""
			if summary != nil {
				currentID = summary.ID
			}
			if !baselined {
				lastID = currentID
				baselined = true
				continue
			}
			if currentID == lastID || summary == nil {
				continue
			}
			lastID = currentID
			data, _ := json.Marshal(map[string]any{
				"id":          summary.ID,
				"tenant":      summary.TenantKey,
				"campaignKey": summary.CampaignKey,
				"source":      string(summary.Source),
				"receivedAt":  summary.ReceivedAt.UTC().Format(time.RFC3339),
			})
			ch.send(Event{Name: "lead_created", Data: data})
		}
	}
}

// readCursor reads the baseline cursor; ok is false when the read failed and
// the baseline must be taken on a later poll instead.
func (r *Registry) readCursor(ctx context.Context, ch *Channel) (string, bool) {
	summary, err := r.reader.LatestByTenant(ctx, ch.tenant)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("stream: baseline tenant %s: %v", ch.tenant, err)
		}
		return "", false
	}
	if summary == nil {
		return "", true
	}
	return summary.ID, true
}
