/*
Package history archives delivered room messages to PostgreSQL.

The archive is an operational convenience of the development server: when a
database DSN is configured the server keeps a durable record of room
traffic, and without one every write is a no-op. Rooms never wait on it.
*/
package history

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"gabber/internal/pkg/logx"
)

// Recorder archives one delivered message.
type Recorder interface {
	// Record persists a message. Implementations must be safe for
	// concurrent use.
	Record(ctx context.Context, room, sender, content string) error

	// Close releases the recorder's resources.
	Close()
}

// NewRecorder returns a Postgres-backed recorder when dsn is set and a
// no-op recorder otherwise.
func NewRecorder(ctx context.Context, dsn string) (Recorder, error) {
	if dsn == "" {
		logx.Info("No database DSN configured, message archiving disabled")
		return noopRecorder{}, nil
	}

	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return &pgRecorder{pool: pool}, nil
}

// pgRecorder writes messages into the messages table.
type pgRecorder struct {
	pool *pgxpool.Pool
}

func (r *pgRecorder) Record(ctx context.Context, room, sender, content string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (room, sender, content) VALUES ($1, $2, $3)`,
		room, sender, content)
	return err
}

func (r *pgRecorder) Close() {
	r.pool.Close()
}

// noopRecorder discards everything.
type noopRecorder struct{}

func (noopRecorder) Record(context.Context, string, string, string) error { return nil }
func (noopRecorder) Close()                                               {}
