package library

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/247pages/Ofplay/internal/model"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	l := New(rdb, &MockDB{})
	l.SetBatchPause(time.Millisecond)
	return l
}

func TestToggleFavoriteRoundTrip(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()
	track := model.Track{ID: "v1", Title: "Song", ChannelName: "Chan", DurationSeconds: 120}

	on, err := l.ToggleFavorite(ctx, "u1", track)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !on {
		t.Fatal("first toggle should favorite")
	}

	fav, err := l.IsFavorite(ctx, "u1", "v1")
	if err != nil || !fav {
		t.Fatalf("IsFavorite = %v, %v; want true", fav, err)
	}
	count, err := l.FavoriteCount(ctx, "v1")
	if err != nil || count != 1 {
		t.Fatalf("FavoriteCount = %d, %v; want 1", count, err)
	}

	off, err := l.ToggleFavorite(ctx, "u1", track)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if off {
		t.Fatal("second toggle should unfavorite")
	}

	fav, _ = l.IsFavorite(ctx, "u1", "v1")
	if fav {
		t.Fatal("still favorited after round trip")
	}
	count, _ = l.FavoriteCount(ctx, "v1")
	if count != 0 {
		t.Fatalf("FavoriteCount after round trip = %d; want 0", count)
	}
}

func TestFavoriteCountIsShared(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()
	track := model.Track{ID: "v1", Title: "Song"}

	if _, err := l.ToggleFavorite(ctx, "u1", track); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ToggleFavorite(ctx, "u2", track); err != nil {
		t.Fatal(err)
	}

	count, err := l.FavoriteCount(ctx, "v1")
	if err != nil || count != 2 {
		t.Fatalf("FavoriteCount = %d, %v; want 2", count, err)
	}

	// One user backing out does not affect the other.
	if _, err := l.ToggleFavorite(ctx, "u1", track); err != nil {
		t.Fatal(err)
	}
	count, _ = l.FavoriteCount(ctx, "v1")
	if count != 1 {
		t.Fatalf("FavoriteCount = %d; want 1", count)
	}
	fav, _ := l.IsFavorite(ctx, "u2", "v1")
	if !fav {
		t.Fatal("u2 lost their favorite")
	}
}

func TestFavoriteCountUnknownTrack(t *testing.T) {
	l := newTestLibrary(t)

	count, err := l.FavoriteCount(context.Background(), "nope")
	if err != nil {
		t.Fatalf("FavoriteCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d; want 0", count)
	}
}

func TestFavoriteWarmsTrackCache(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()
	track := model.Track{
		ID:              "v1",
		Title:           "Song",
		ThumbnailURL:    "https://img/1.jpg",
		ChannelName:     "Chan",
		DurationSeconds: 185,
	}

	if _, err := l.ToggleFavorite(ctx, "u1", track); err != nil {
		t.Fatal(err)
	}

	cached, ok, err := l.CachedTrack(ctx, "v1")
	if err != nil || !ok {
		t.Fatalf("CachedTrack = %v, %v", ok, err)
	}
	if cached.Title != "Song" || cached.DurationSeconds != 185 {
		t.Fatalf("cached = %+v", cached)
	}
}

func TestToggleSavedMembership(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()

	on, err := l.ToggleSaved(ctx, "u1", "PL1")
	if err != nil || !on {
		t.Fatalf("ToggleSaved = %v, %v; want true", on, err)
	}
	saved, _ := l.IsSaved(ctx, "u1", "PL1")
	if !saved {
		t.Fatal("not saved after toggle")
	}

	off, err := l.ToggleSaved(ctx, "u1", "PL1")
	if err != nil || off {
		t.Fatalf("ToggleSaved = %v, %v; want false", off, err)
	}
}

func TestToggleSubscriptionMembership(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()

	on, err := l.ToggleSubscription(ctx, "u1", "Some Channel")
	if err != nil || !on {
		t.Fatalf("ToggleSubscription = %v, %v; want true", on, err)
	}
	sub, _ := l.IsSubscribed(ctx, "u1", "Some Channel")
	if !sub {
		t.Fatal("not subscribed after toggle")
	}

	off, err := l.ToggleSubscription(ctx, "u1", "Some Channel")
	if err != nil || off {
		t.Fatalf("ToggleSubscription = %v, %v; want false", off, err)
	}
}
