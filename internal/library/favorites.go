package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/247pages/Ofplay/internal/model"
)

// ToggleFavorite flips the per-user favorite membership for a track
// and adjusts the shared favorite count atomically (HIncrBy, not a
// read-modify-write). Either both writes land or the membership flip
// is rolled back, so a failure never leaves a partial toggle.
func (l *Library) ToggleFavorite(ctx context.Context, userID string, t model.Track) (favorited bool, err error) {
	key := favoritesKey(userID)

	isMember, err := l.rdb.SIsMember(ctx, key, t.ID).Result()
	if err != nil {
		return false, fmt.Errorf("favorite lookup: %w", err)
	}

	if isMember {
		if err := l.rdb.SRem(ctx, key, t.ID).Err(); err != nil {
			return true, fmt.Errorf("favorite remove: %w", err)
		}
		if err := l.rdb.HIncrBy(ctx, trackKey(t.ID), "favoriteCount", -1).Err(); err != nil {
			// Restore membership so the two documents stay coherent.
			if rerr := l.rdb.SAdd(ctx, key, t.ID).Err(); rerr != nil {
				log.Printf("ofplay: favorite rollback: %v", rerr)
			}
			return true, fmt.Errorf("favorite count: %w", err)
		}
		return false, nil
	}

	if err := l.rdb.SAdd(ctx, key, t.ID).Err(); err != nil {
		return false, fmt.Errorf("favorite add: %w", err)
	}
	if err := l.rdb.HIncrBy(ctx, trackKey(t.ID), "favoriteCount", 1).Err(); err != nil {
		if rerr := l.rdb.SRem(ctx, key, t.ID).Err(); rerr != nil {
			log.Printf("ofplay: favorite rollback: %v", rerr)
		}
		return false, fmt.Errorf("favorite count: %w", err)
	}

	// Populating the shared cache is a best-effort side effect; it
	// must never block the user action.
	l.cacheTrack(ctx, t)

	return true, nil
}

// IsFavorite reports per-user favorite membership.
func (l *Library) IsFavorite(ctx context.Context, userID, trackID string) (bool, error) {
	return l.rdb.SIsMember(ctx, favoritesKey(userID), trackID).Result()
}

// FavoriteCount reads the shared per-track favorite count.
func (l *Library) FavoriteCount(ctx context.Context, trackID string) (int, error) {
	raw, err := l.rdb.HGet(ctx, trackKey(trackID), "favoriteCount").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("favorite count for %s: %w", trackID, err)
	}
	return n, nil
}

// ToggleSaved flips saved-playlist membership. Existence is
// membership; there is no payload document.
func (l *Library) ToggleSaved(ctx context.Context, userID, playlistID string) (bool, error) {
	return l.toggleMembership(ctx, savedKey(userID), playlistID)
}

func (l *Library) IsSaved(ctx context.Context, userID, playlistID string) (bool, error) {
	return l.rdb.SIsMember(ctx, savedKey(userID), playlistID).Result()
}

// ToggleSubscription flips channel-subscription membership.
func (l *Library) ToggleSubscription(ctx context.Context, userID, channelName string) (bool, error) {
	return l.toggleMembership(ctx, subscriptionsKey(userID), channelName)
}

func (l *Library) IsSubscribed(ctx context.Context, userID, channelName string) (bool, error) {
	return l.rdb.SIsMember(ctx, subscriptionsKey(userID), channelName).Result()
}

func (l *Library) toggleMembership(ctx context.Context, key, member string) (bool, error) {
	isMember, err := l.rdb.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("membership lookup: %w", err)
	}

	if isMember {
		if err := l.rdb.SRem(ctx, key, member).Err(); err != nil {
			return true, fmt.Errorf("membership remove: %w", err)
		}
		return false, nil
	}

	if err := l.rdb.SAdd(ctx, key, member).Err(); err != nil {
		return false, fmt.Errorf("membership add: %w", err)
	}
	return true, nil
}

// cacheTrack upserts track metadata into the shared cache. Errors are
// swallowed: the cache is warmed opportunistically.
func (l *Library) cacheTrack(ctx context.Context, t model.Track) {
	if t.ID == "" {
		return
	}
	err := l.rdb.HSet(ctx, trackKey(t.ID),
		"title", t.Title,
		"thumbnailUrl", t.ThumbnailURL,
		"channelName", t.ChannelName,
		"durationSeconds", t.DurationSeconds,
	).Err()
	if err != nil {
		log.Printf("ofplay: track cache populate %s: %v", t.ID, err)
	}
}

// CachedTrack reads a track back out of the shared cache.
func (l *Library) CachedTrack(ctx context.Context, trackID string) (model.Track, bool, error) {
	fields, err := l.rdb.HGetAll(ctx, trackKey(trackID)).Result()
	if err != nil {
		return model.Track{}, false, err
	}
	if len(fields) == 0 {
		return model.Track{}, false, nil
	}

	dur, _ := strconv.Atoi(fields["durationSeconds"])
	return model.Track{
		ID:              trackID,
		Title:           fields["title"],
		ThumbnailURL:    fields["thumbnailUrl"],
		ChannelName:     fields["channelName"],
		DurationSeconds: dur,
	}, true, nil
}
