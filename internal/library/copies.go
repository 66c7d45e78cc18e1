package library

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/247pages/Ofplay/internal/model"
)

const (
	// copyBatchSize bounds one write transaction when copying a
	// playlist's membership records.
	copyBatchSize = 50

	defaultBatchPause = 150 * time.Millisecond

	// copyCooldown throttles how often one user may start a playlist
	// copy; a copy fans out hundreds of writes.
	copyCooldown = 30 * time.Second
)

// AcquireCopySlot reports whether the user may start a playlist copy
// right now. The slot is a Redis key with a TTL, so a crashed copy
// frees itself.
func (l *Library) AcquireCopySlot(ctx context.Context, userID string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, copySlotKey(userID), "1", copyCooldown).Result()
	if err != nil {
		return false, fmt.Errorf("copy slot: %w", err)
	}
	return ok, nil
}

// CopyPlaylist copies a playlist into the user's personal collection:
// one header row plus a lightweight membership record per track,
// written in batches of up to 50 with a short pause between batches.
// Track metadata itself goes into the shared cache, deduplicated by
// track id, so copies stay cheap.
func (l *Library) CopyPlaylist(ctx context.Context, ownerID string, info model.PlaylistInfo, tracks []model.Track) (model.PlaylistCopy, error) {
	var copyRow model.PlaylistCopy
	err := l.db.QueryRow(ctx, `
		INSERT INTO playlist_copies (owner_id, source_id, title, visibility, video_count)
		VALUES ($1, $2, $3, 'private', $4)
		RETURNING id, owner_id, source_id, title, visibility, video_count, created_at
	`, ownerID, info.ID, info.Title, len(tracks)).Scan(
		&copyRow.ID,
		&copyRow.OwnerID,
		&copyRow.SourceID,
		&copyRow.Title,
		&copyRow.Visibility,
		&copyRow.VideoCount,
		&copyRow.CreatedAt,
	)
	if err != nil {
		return model.PlaylistCopy{}, fmt.Errorf("copy header insert: %w", err)
	}

	for start := 0; start < len(tracks); start += copyBatchSize {
		end := start + copyBatchSize
		if end > len(tracks) {
			end = len(tracks)
		}

		batch := &pgx.Batch{}
		for i, t := range tracks[start:end] {
			batch.Queue(`
				INSERT INTO playlist_copy_tracks (copy_id, track_id, position)
				VALUES ($1, $2, $3)
			`, copyRow.ID, t.ID, start+i)
		}

		if err := l.sendBatch(ctx, batch); err != nil {
			return model.PlaylistCopy{}, fmt.Errorf("copy batch at %d: %w", start, err)
		}

		if end < len(tracks) && l.batchPause > 0 {
			select {
			case <-ctx.Done():
				return model.PlaylistCopy{}, ctx.Err()
			case <-time.After(l.batchPause):
			}
		}
	}

	// Warm the shared cache so the copy renders without refetching the
	// provider. Best-effort by design.
	for _, t := range tracks {
		l.cacheTrack(ctx, t)
	}

	return copyRow, nil
}

func (l *Library) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	results := l.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// CopyEntries lists the membership records of one copy in playback
// order.
func (l *Library) CopyEntries(ctx context.Context, copyID string) ([]model.CopyEntry, error) {
	rows, err := l.db.Query(ctx, `
		SELECT track_id, position, added_at
		FROM playlist_copy_tracks
		WHERE copy_id = $1
		ORDER BY position ASC
	`, copyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CopyEntry
	for rows.Next() {
		var e model.CopyEntry
		if err := rows.Scan(&e.TrackID, &e.Position, &e.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Copies lists a user's playlist copies, newest first.
func (l *Library) Copies(ctx context.Context, ownerID string) ([]model.PlaylistCopy, error) {
	rows, err := l.db.Query(ctx, `
		SELECT id, owner_id, source_id, title, visibility, video_count, created_at
		FROM playlist_copies
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlaylistCopy
	for rows.Next() {
		var c model.PlaylistCopy
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.SourceID, &c.Title, &c.Visibility, &c.VideoCount, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
