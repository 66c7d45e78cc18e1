package library

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

func AutoMigrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS pgcrypto`); err != nil {
		log.Printf("ofplay: migrate pgcrypto: %v", err)
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS playlist_copies (
          id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          owner_id    TEXT NOT NULL,
          source_id   TEXT NOT NULL,
          title       TEXT NOT NULL,
          visibility  TEXT NOT NULL DEFAULT 'private',
          video_count INT NOT NULL DEFAULT 0,
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS playlist_copy_tracks (
          copy_id   uuid NOT NULL REFERENCES playlist_copies(id) ON DELETE CASCADE,
          track_id  TEXT NOT NULL,
          position  INT NOT NULL,
          added_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
          PRIMARY KEY (copy_id, track_id)
      )
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE UNIQUE INDEX IF NOT EXISTS idx_copy_tracks_position
      ON playlist_copy_tracks(copy_id, position)
    `); err != nil {
		return err
	}

	return nil
}
