package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxPoolSize = 50
	appName            = "presensi-api"
)

// Config selects the deployment and database holding users and attendances.
type Config struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	Timeout     time.Duration
}

func (c Config) clientOptions() *options.ClientOptions {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pool := c.MaxPoolSize
	if pool == 0 {
		pool = defaultMaxPoolSize
	}
	return options.Client().
		ApplyURI(c.URI).
		SetAppName(appName).
		SetMaxPoolSize(pool).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)
}

// Connect dials the deployment and waits for the primary to answer, so the
// partial unique index backing the open-session rule can be created next.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	if cfg.Database == "" {
		return nil, nil, fmt.Errorf("mongo: database name is required")
	}
	opts := cfg.clientOptions()

	connectCtx, cancel := context.WithTimeout(ctx, *opts.ServerSelectionTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes creates the indexes of every collection used by the service.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := NewAuthRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if err := NewAttendanceRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("attendances indexes: %w", err)
	}
	return nil
}

// Pinger adapts a client to the readiness check.
type Pinger struct {
	client *mongo.Client
}

func NewPinger(client *mongo.Client) *Pinger {
	return &Pinger{client: client}
}

func (p *Pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}
