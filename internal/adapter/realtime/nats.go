// internal/adapter/realtime/nats.go

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"

	"campusevents/internal/domain/realtime"
)

// Broker implements realtime.Broker on NATS subjects of the form
// <prefix>.<table>.<TYPE>
type Broker struct {
	conn      *nats.Conn
	prefix    string
	queueSize int
}

// NewBroker creates a new NATS broker
func NewBroker(conn *nats.Conn, prefix string, queueSize int) *Broker {
	if prefix == "" {
		prefix = "realtime"
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Broker{
		conn:      conn,
		prefix:    prefix,
		queueSize: queueSize,
	}
}

// Subject returns the subject a change is published on
func (b *Broker) Subject(table string, eventType realtime.EventType) string {
	return fmt.Sprintf("%s.%s.%s", b.prefix, table, eventType)
}

// subjectFor returns the subject a channel listens on
func (b *Broker) subjectFor(channel realtime.Channel) string {
	if channel.Type == "" || channel.Type == realtime.EventAll {
		return fmt.Sprintf("%s.%s.*", b.prefix, channel.Table)
	}
	return b.Subject(channel.Table, channel.Type)
}

// Publish sends a change to every subscriber of its table
func (b *Broker) Publish(ctx context.Context, change realtime.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("error marshaling change: %w", err)
	}

	if err := b.conn.Publish(b.Subject(change.Table, change.Type), data); err != nil {
		return fmt.Errorf("error publishing change on %s: %w", change.Table, err)
	}
	return nil
}

// Subscribe opens a bounded subscription for a channel
func (b *Broker) Subscribe(ctx context.Context, channel realtime.Channel) (realtime.Subscription, error) {
	if channel.Table == "" || strings.ContainsAny(channel.Table, ".*> ") {
		return nil, fmt.Errorf("invalid table %q for channel %s", channel.Table, channel.Name)
	}

	s := newSubscription(channel, b.queueSize)
	sub, err := b.conn.Subscribe(b.subjectFor(channel), func(msg *nats.Msg) {
		s.deliver(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel.Name, err)
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	return s, nil
}

type subscription struct {
	channel realtime.Channel
	ch      chan realtime.Change

	mu     sync.Mutex
	sub    *nats.Subscription
	closed bool
}

func newSubscription(channel realtime.Channel, size int) *subscription {
	return &subscription{
		channel: channel,
		ch:      make(chan realtime.Change, size),
	}
}

func (s *subscription) C() <-chan realtime.Change {
	return s.ch
}

func (s *subscription) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch)

	if s.sub == nil {
		return nil
	}
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", s.channel.Name, err)
	}
	return nil
}

// deliver decodes a message and queues it when it matches the channel.
// A full queue drops the change.
func (s *subscription) deliver(data []byte) {
	var change realtime.Change
	if err := json.Unmarshal(data, &change); err != nil {
		log.Printf("[realtime] invalid change on %s: %v", s.channel.Name, err)
		return
	}
	if !s.channel.Matches(change) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.ch <- change:
	default:
		log.Printf("[realtime] queue full for channel %s, dropping %s on %s", s.channel.Name, change.Type, change.Table)
	}
}
