package library

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// DB is the subset of pgxpool.Pool the library uses; tests substitute
// hand-rolled mocks.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Library is the per-user document layer: favorites, saved playlists
// and subscriptions live as Redis membership sets over a shared,
// deduplicated track cache; playlist copies live in Postgres.
type Library struct {
	rdb *redis.Client
	db  DB

	// batchPause spaces out membership-row batches so a large copy
	// does not hammer the store.
	batchPause time.Duration
}

func New(rdb *redis.Client, db DB) *Library {
	return &Library{
		rdb:        rdb,
		db:         db,
		batchPause: defaultBatchPause,
	}
}

// SetBatchPause overrides the inter-batch pause (tests).
func (l *Library) SetBatchPause(d time.Duration) {
	l.batchPause = d
}

func favoritesKey(userID string) string     { return "user:" + userID + ":favorites" }
func savedKey(userID string) string         { return "user:" + userID + ":saved" }
func subscriptionsKey(userID string) string { return "user:" + userID + ":subscriptions" }
func trackKey(trackID string) string        { return "track:" + trackID }
func copySlotKey(userID string) string      { return "user:" + userID + ":copyslot" }
