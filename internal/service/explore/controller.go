package explore

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"campusevents/internal/domain/event"
	"campusevents/internal/domain/realtime"
	"campusevents/internal/service/normalize"
)

// ControllerConfig contains configuration for a live event list
type ControllerConfig struct {
	// Debounce is how long search text must stay unchanged before a fetch
	Debounce time.Duration

	// Tables are the collections whose changes trigger a refetch
	Tables []string

	// QueueSize bounds the notifications waiting for the consumer
	QueueSize int
}

// DefaultControllerConfig returns the default list configuration
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Debounce:  400 * time.Millisecond,
		Tables:    []string{event.CollectionEvents, event.CollectionRegistrations},
		QueueSize: 16,
	}
}

// Snapshot is the render state of a live list
type Snapshot struct {
	Version uint64            `json:"version"`
	Filter  event.FilterState `json:"filter"`
	Events  []normalize.View  `json:"events"`
	Loading bool              `json:"loading"`
}

// Controller keeps one filtered event list in step with the backend.
// Search changes are debounced, filter changes fetch immediately and
// realtime notifications trigger background refetches. Responses to
// superseded fetches are discarded, so the last issued fetch wins.
type Controller struct {
	catalog *Catalog
	broker  realtime.Broker
	config  ControllerConfig

	mu          sync.Mutex
	filter      event.FilterState
	events      []normalize.View
	loading     bool
	version     uint64
	issued      uint64
	debounceGen uint64
	timer       *time.Timer
	handlers    []func(Snapshot)
	subs        []realtime.Subscription
	ctx         context.Context
	cancel      context.CancelFunc
	active      bool
	wg          sync.WaitGroup

	notifyMu     sync.Mutex
	lastNotified uint64
}

// NewController creates an inactive controller
func NewController(catalog *Catalog, broker realtime.Broker, config ControllerConfig) *Controller {
	if config.Debounce <= 0 {
		config.Debounce = DefaultControllerConfig().Debounce
	}
	if len(config.Tables) == 0 {
		config.Tables = DefaultControllerConfig().Tables
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultControllerConfig().QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	return &Controller{
		catalog: catalog,
		broker:  broker,
		config:  config,
		filter:  event.FilterState{Key: event.FilterAll},
		events:  []normalize.View{},
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RegisterUpdateHandler registers a callback for every new snapshot.
// Handlers must not call back into the controller.
func (c *Controller) RegisterUpdateHandler(handler func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers = append(c.handlers, handler)
}

// Activate subscribes to the watched tables and performs a full fetch
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	subs := make([]realtime.Subscription, 0, len(c.config.Tables))
	for _, table := range c.config.Tables {
		sub, err := c.broker.Subscribe(runCtx, realtime.Channel{
			Name:  "explore:" + table,
			Table: table,
			Type:  realtime.EventAll,
		})
		if err != nil {
			cancel()
			c.mu.Unlock()
			unsubscribeAll(subs)
			return fmt.Errorf("error subscribing to %s: %w", table, err)
		}
		subs = append(subs, sub)
	}

	c.active = true
	c.ctx = runCtx
	c.cancel = cancel
	c.subs = subs

	queue := make(chan realtime.Change, c.config.QueueSize)
	for _, sub := range subs {
		c.wg.Add(1)
		go c.forward(runCtx, sub, queue)
	}
	c.wg.Add(1)
	go c.consume(runCtx, queue)
	c.mu.Unlock()

	c.fetch(runCtx, true)
	return nil
}

// Deactivate tears down subscriptions and pending work
func (c *Controller) Deactivate() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.debounceGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.cancel()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	unsubscribeAll(subs)
	c.wg.Wait()
}

// SetSearch updates the search text. Non-empty text is debounced;
// clearing the search fetches immediately.
func (c *Controller) SetSearch(text string) {
	c.mu.Lock()
	c.filter.Search = text
	c.debounceGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	ctx := c.ctx

	if strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		c.fetch(ctx, true)
		return
	}

	gen := c.debounceGen
	c.timer = time.AfterFunc(c.config.Debounce, func() {
		c.mu.Lock()
		current := gen == c.debounceGen
		if current {
			c.timer = nil
		}
		c.mu.Unlock()

		if current {
			c.fetch(ctx, true)
		}
	})
	c.mu.Unlock()
}

// SetFilter selects a filter key and fetches immediately, dropping any
// pending debounced search fetch
func (c *Controller) SetFilter(key event.FilterKey) {
	c.mu.Lock()
	c.filter.Key = key
	c.debounceGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	ctx := c.ctx
	c.mu.Unlock()

	c.fetch(ctx, true)
}

// Refresh refetches without raising the loading flag
func (c *Controller) Refresh() {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	c.fetch(ctx, false)
}

// Snapshot returns the current render state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	events := make([]normalize.View, len(c.events))
	copy(events, c.events)
	return Snapshot{
		Version: c.version,
		Filter:  c.filter,
		Events:  events,
		Loading: c.loading,
	}
}

// fetch runs one query for the current filter state. Visible fetches
// raise the loading flag; errors degrade to an empty list.
func (c *Controller) fetch(ctx context.Context, visible bool) {
	if ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	c.issued++
	seq := c.issued
	state := c.filter
	var pending *Snapshot
	if visible && !c.loading {
		c.loading = true
		c.version++
		s := c.snapshotLocked()
		pending = &s
	}
	c.mu.Unlock()

	if pending != nil {
		c.notify(*pending)
	}

	events, err := c.catalog.List(ctx, state)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Printf("[explore] fetch failed for %+v: %v", state, err)
		events = []normalize.View{}
	}

	c.mu.Lock()
	if seq != c.issued {
		c.mu.Unlock()
		return
	}
	c.events = events
	c.loading = false
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Controller) notify(snap Snapshot) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if snap.Version <= c.lastNotified {
		return
	}
	c.lastNotified = snap.Version

	c.mu.Lock()
	handlers := make([]func(Snapshot), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(snap)
	}
}

// forward moves notifications from one subscription onto the shared queue
func (c *Controller) forward(ctx context.Context, sub realtime.Subscription, queue chan<- realtime.Change) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-sub.C():
			if !ok {
				return
			}
			select {
			case queue <- change:
			case <-ctx.Done():
				return
			}
		}
	}
}

// consume is the single consumer of realtime notifications
func (c *Controller) consume(ctx context.Context, queue <-chan realtime.Change) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case change := <-queue:
			log.Printf("[explore] %s on %s, refreshing", change.Type, change.Table)
			c.fetch(ctx, false)
		}
	}
}

func unsubscribeAll(subs []realtime.Subscription) {
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("[explore] warning: failed to unsubscribe: %v", err)
		}
	}
}
