package model

import (
	"time"
)

// Track is a single playable entry fetched from the video provider.
// Tracks are immutable once fetched and compared by ID only.
type Track struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ThumbnailURL    string `json:"thumbnailUrl"`
	ChannelName     string `json:"channelName"`
	Description     string `json:"description"`
	DurationSeconds int    `json:"durationSeconds"`
}

// PlaylistInfo is the provider-side playlist header.
type PlaylistInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ChannelName string `json:"channelName"`
	ItemCount   int    `json:"itemCount"`
}

// PlaylistCopy is the header document of a playlist copied into a
// user's personal collection. Its entries point into the shared track
// cache rather than duplicating track metadata.
type PlaylistCopy struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	SourceID   string    `json:"sourceId"`
	Title      string    `json:"title"`
	Visibility string    `json:"visibility"` // "private" | "public"
	VideoCount int       `json:"videoCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CopyEntry is the lightweight membership record of one track inside a
// playlist copy.
type CopyEntry struct {
	TrackID  string    `json:"trackId"`
	Position int       `json:"position"`
	AddedAt  time.Time `json:"addedAt"`
}
