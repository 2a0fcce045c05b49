package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// maxNotifyPayload is the largest payload PostgreSQL accepts in NOTIFY.
const maxNotifyPayload = 8000

// PostgresBroker publishes with pg_notify and subscribes with LISTEN. Each
// subscription holds its own connection, since a listening connection can
// not be shared with a pool.
type PostgresBroker struct {
	dsn  string
	pool *pgxpool.Pool
}

func NewPostgresBroker(ctx context.Context, dsn string) (*PostgresBroker, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect broker: %w", err)
	}
	return &PostgresBroker{dsn: dsn, pool: pool}, nil
}

func (b *PostgresBroker) Publish(ctx context.Context, channel string, data []byte) error {
	if len(data) >= maxNotifyPayload {
		return fmt.Errorf("payload of %d bytes exceeds the NOTIFY limit", len(data))
	}
	if _, err := b.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, string(data)); err != nil {
		return fmt.Errorf("notify %s: %w", channel, err)
	}
	return nil
}

func (b *PostgresBroker) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	conn, err := pgx.Connect(ctx, b.dsn)
	if err != nil {
		return nil, fmt.Errorf("connect listener: %w", err)
	}
	for _, c := range channels {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{c}.Sanitize()); err != nil {
			_ = conn.Close(ctx)
			return nil, fmt.Errorf("listen %s: %w", c, err)
		}
	}
	return &postgresSubscription{conn: conn}, nil
}

func (b *PostgresBroker) Close() error {
	b.pool.Close()
	return nil
}

type postgresSubscription struct {
	conn *pgx.Conn
}

func (s *postgresSubscription) Next(ctx context.Context) (Message, error) {
	n, err := s.conn.WaitForNotification(ctx)
	if err != nil {
		return Message{}, err
	}
	return notificationMessage(n), nil
}

func (s *postgresSubscription) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

func notificationMessage(n *pgconn.Notification) Message {
	return Message{Channel: n.Channel, Data: []byte(n.Payload)}
}
