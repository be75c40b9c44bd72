package memory

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"campusevents/internal/domain/realtime"
)

// Broker is an in-process realtime broker
type Broker struct {
	mu        sync.Mutex
	subs      map[string]*subscription
	queueSize int
}

// NewBroker creates a broker whose subscriptions buffer queueSize changes
func NewBroker(queueSize int) *Broker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Broker{
		subs:      make(map[string]*subscription),
		queueSize: queueSize,
	}
}

type subscription struct {
	id      string
	channel realtime.Channel
	ch      chan realtime.Change
	broker  *Broker
}

func (s *subscription) C() <-chan realtime.Change {
	return s.ch
}

func (s *subscription) Unsubscribe() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()

	if _, ok := s.broker.subs[s.id]; !ok {
		return nil
	}
	delete(s.broker.subs, s.id)
	close(s.ch)
	return nil
}

// Subscribe opens a subscription on a channel
func (b *Broker) Subscribe(ctx context.Context, channel realtime.Channel) (realtime.Subscription, error) {
	sub := &subscription{
		id:      uuid.New().String(),
		channel: channel,
		ch:      make(chan realtime.Change, b.queueSize),
		broker:  b,
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	return sub, nil
}

// Publish delivers a change to every matching subscription. A full
// queue drops the change for that subscriber.
func (b *Broker) Publish(ctx context.Context, change realtime.Change) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if !sub.channel.Matches(change) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			log.Printf("[realtime] queue full for channel %s, dropping %s on %s", sub.channel.Name, change.Type, change.Table)
		}
	}
	return nil
}

// Subscribers returns the number of open subscriptions
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
