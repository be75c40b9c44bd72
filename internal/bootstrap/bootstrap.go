// internal/bootstrap/bootstrap.go

package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"

	"campusevents/internal/adapter/memory"
	realtimeAdapter "campusevents/internal/adapter/realtime"
	"campusevents/internal/adapter/storage"
	"campusevents/internal/config"
	"campusevents/internal/domain/discussion"
	"campusevents/internal/domain/event"
	"campusevents/internal/domain/realtime"
)

// Backend bundles the stores and broker a process runs against
type Backend struct {
	Events     event.Store
	Discussion discussion.Store
	Broker     realtime.Broker

	// DB is nil for the memory store driver
	DB   *pgxpool.Pool
	NATS *nats.Conn
}

// Open connects the configured drivers
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	b := &Backend{}

	switch cfg.Realtime.Driver {
	case config.DriverNATS:
		nc, err := initNATS(cfg.NATS)
		if err != nil {
			return nil, err
		}
		b.NATS = nc
		b.Broker = realtimeAdapter.NewBroker(nc, cfg.Realtime.SubjectPrefix, cfg.Realtime.QueueSize)
	default:
		b.Broker = memory.NewBroker(cfg.Realtime.QueueSize)
	}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.DB = db
		b.Events = storage.NewEventStore(db)
		b.Discussion = storage.NewDiscussionStore(db)
	default:
		store := memory.NewStore(b.Broker)
		b.Events = store
		b.Discussion = store
		log.Println("Using in-memory store; data is lost on exit")
	}

	return b, nil
}

// Role names the process asking for a bridge
type Role string

const (
	RoleAPI    Role = "api"
	RoleWorker Role = "worker"
)

// Bridge returns the notification bridge the given process should run,
// or nil. A NATS broker is shared by every replica, so only the worker
// feeds it; an in-process broker is fed by the API process holding it.
func (b *Backend) Bridge(cfg config.RealtimeConfig, role Role) *realtimeAdapter.Bridge {
	if b.DB == nil {
		return nil
	}
	shared := b.NATS != nil
	if shared != (role == RoleWorker) {
		return nil
	}
	bridge := realtimeAdapter.DefaultBridgeConfig()
	bridge.Channel = cfg.NotifyChannel
	return realtimeAdapter.NewBridge(b.DB, b.Broker, bridge)
}

// Close releases every connection
func (b *Backend) Close() {
	if b.DB != nil {
		b.DB.Close()
	}
	if b.NATS != nil {
		b.NATS.Close()
	}
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
