package discussion

import (
	"context"
	"fmt"
	"log"
	"sync"

	"campusevents/internal/domain/discussion"
	"campusevents/internal/domain/realtime"
	"campusevents/internal/service/normalize"
)

// DefaultLimit is the number of items a feed loads and keeps
const DefaultLimit = 200

// Feed is the live discussion thread of one event. New items are
// prepended as insert notifications arrive; the list is capped at the
// feed limit and is not re-sorted or de-duplicated.
type Feed struct {
	store      discussion.Store
	broker     realtime.Broker
	normalizer *normalize.Normalizer
	eventID    string
	limit      int

	mu       sync.Mutex
	items    []discussion.Item
	handlers []func([]discussion.Item)
	sub      realtime.Subscription
	starting bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewFeed creates a stopped feed for eventID
func NewFeed(store discussion.Store, broker realtime.Broker, normalizer *normalize.Normalizer, eventID string, limit int) *Feed {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Feed{
		store:      store,
		broker:     broker,
		normalizer: normalizer,
		eventID:    eventID,
		limit:      limit,
		items:      []discussion.Item{},
	}
}

// RegisterUpdateHandler registers a callback receiving the full list after each change
func (f *Feed) RegisterUpdateHandler(handler func([]discussion.Item)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers = append(f.handlers, handler)
}

// Start loads the latest items and subscribes to inserts for the event
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.sub != nil || f.starting {
		f.mu.Unlock()
		return nil
	}
	f.starting = true
	f.mu.Unlock()

	items, err := f.store.Recent(ctx, f.eventID, f.limit)
	if err != nil {
		log.Printf("[discussion] error loading items for event %s: %v", f.eventID, err)
		items = []discussion.Item{}
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub, err := f.broker.Subscribe(runCtx, realtime.Channel{
		Name:   "discussion:" + f.eventID,
		Table:  discussion.Collection,
		Type:   realtime.EventInsert,
		Filter: &realtime.Filter{Column: discussion.ColumnEventID, Value: f.eventID},
	})
	if err != nil {
		cancel()
		f.mu.Lock()
		f.starting = false
		f.mu.Unlock()
		return fmt.Errorf("error subscribing to discussion for event %s: %w", f.eventID, err)
	}

	f.mu.Lock()
	f.items = items
	f.sub = sub
	f.cancel = cancel
	f.starting = false
	f.mu.Unlock()
	f.notify()

	f.wg.Add(1)
	go f.consume(runCtx, sub)
	return nil
}

// Stop unsubscribes and waits for the consumer to exit
func (f *Feed) Stop() {
	f.mu.Lock()
	sub := f.sub
	cancel := f.cancel
	f.sub = nil
	f.cancel = nil
	f.mu.Unlock()

	if sub == nil {
		return
	}
	if err := sub.Unsubscribe(); err != nil {
		log.Printf("[discussion] warning: failed to unsubscribe from event %s: %v", f.eventID, err)
	}
	cancel()
	f.wg.Wait()
}

// Items returns the current thread, newest first
func (f *Feed) Items() []discussion.Item {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := make([]discussion.Item, len(f.items))
	copy(items, f.items)
	return items
}

func (f *Feed) consume(ctx context.Context, sub realtime.Subscription) {
	defer f.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-sub.C():
			if !ok {
				return
			}
			f.prepend(f.normalizer.Discussion(change.New))
		}
	}
}

func (f *Feed) prepend(item discussion.Item) {
	f.mu.Lock()
	items := make([]discussion.Item, 0, len(f.items)+1)
	items = append(items, item)
	items = append(items, f.items...)
	if len(items) > f.limit {
		items = items[:f.limit]
	}
	f.items = items
	f.mu.Unlock()

	f.notify()
}

func (f *Feed) notify() {
	f.mu.Lock()
	handlers := make([]func([]discussion.Item), len(f.handlers))
	copy(handlers, f.handlers)
	items := make([]discussion.Item, len(f.items))
	copy(items, f.items)
	f.mu.Unlock()

	for _, h := range handlers {
		h(items)
	}
}
