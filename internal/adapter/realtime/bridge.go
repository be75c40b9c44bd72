// internal/adapter/realtime/bridge.go

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"campusevents/internal/domain/realtime"
)

// BridgeConfig contains configuration for the notification bridge
type BridgeConfig struct {
	Channel      string
	RetryBackoff time.Duration
}

// DefaultBridgeConfig returns the default bridge configuration
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		Channel:      "realtime_changes",
		RetryBackoff: 2 * time.Second,
	}
}

// Bridge listens for Postgres notifications raised by row triggers and
// republishes them on a broker
type Bridge struct {
	db     *pgxpool.Pool
	broker realtime.Broker
	config BridgeConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBridge creates a new bridge
func NewBridge(db *pgxpool.Pool, broker realtime.Broker, config BridgeConfig) *Bridge {
	def := DefaultBridgeConfig()
	if config.Channel == "" {
		config.Channel = def.Channel
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = def.RetryBackoff
	}
	return &Bridge{
		db:     db,
		broker: broker,
		config: config,
	}
}

// Start begins listening in the background
func (b *Bridge) Start(ctx context.Context) error {
	if _, err := quoteChannel(b.config.Channel); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.wg.Add(1)
	go b.run(ctx)

	log.Printf("[realtime] bridging notifications on %s", b.config.Channel)
	return nil
}

// Stop stops listening and waits for the listener to exit
func (b *Bridge) Stop() {
	if b.cancel == nil {
		return
	}
	b.cancel()
	b.wg.Wait()
}

func (b *Bridge) run(ctx context.Context) {
	defer b.wg.Done()

	for {
		err := b.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Printf("[realtime] listener on %s failed, retrying in %s: %v", b.config.Channel, b.config.RetryBackoff, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(b.config.RetryBackoff):
		}
	}
}

func (b *Bridge) listen(ctx context.Context) error {
	conn, err := b.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("error acquiring connection: %w", err)
	}
	defer conn.Release()

	channel, _ := quoteChannel(b.config.Channel)
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("error listening on %s: %w", channel, err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		b.handle(ctx, n.Payload)
	}
}

// handle republishes one notification payload. Malformed payloads are
// logged and dropped.
func (b *Bridge) handle(ctx context.Context, payload string) bool {
	change, err := Decode(payload)
	if err != nil {
		log.Printf("[realtime] skipping notification: %v", err)
		return false
	}
	if err := b.broker.Publish(ctx, change); err != nil {
		log.Printf("[realtime] error publishing %s on %s: %v", change.Type, change.Table, err)
		return false
	}
	return true
}

// Decode parses a trigger notification payload
func Decode(payload string) (realtime.Change, error) {
	var change realtime.Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return change, fmt.Errorf("error decoding notification: %w", err)
	}
	if change.Table == "" {
		return change, fmt.Errorf("notification without table")
	}

	change.Type = realtime.EventType(strings.ToUpper(string(change.Type)))
	switch change.Type {
	case realtime.EventInsert, realtime.EventUpdate, realtime.EventDelete:
	default:
		return change, fmt.Errorf("unknown change type %q on %s", change.Type, change.Table)
	}
	return change, nil
}

func quoteChannel(name string) (string, error) {
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return "", fmt.Errorf("invalid notification channel %q", name)
		}
	}
	if name == "" {
		return "", fmt.Errorf("empty notification channel")
	}
	return name, nil
}
