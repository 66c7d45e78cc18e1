package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/247pages/Ofplay/internal/model"
	"github.com/247pages/Ofplay/internal/sanitize"
)

const (
	// pageSize is the provider's listing page size; pages are followed
	// through nextPageToken until it comes back empty.
	pageSize = 50

	fetchAttempts   = 3
	fetchRetryDelay = 2 * time.Second
)

// Client talks to the video platform's playlist/listing API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client

	retryDelay time.Duration
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryDelay: fetchRetryDelay,
	}
}

// SetRetryDelay shortens the retry spacing (tests).
func (c *Client) SetRetryDelay(d time.Duration) {
	if d > 0 {
		c.retryDelay = d
	}
}

type ytPlaylistResponse struct {
	Items []struct {
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
		ContentDetails struct {
			ItemCount int `json:"itemCount"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytPlaylistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"videoOwnerChannelTitle"`
			ResourceID   struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
			Thumbnails struct {
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type ytVideosResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// Playlist fetches the playlist header.
func (c *Client) Playlist(ctx context.Context, id string) (model.PlaylistInfo, error) {
	val := url.Values{}
	val.Set("part", "snippet,contentDetails")
	val.Set("id", id)
	val.Set("key", c.apiKey)

	var body ytPlaylistResponse
	if err := c.getJSON(ctx, c.baseURL+"/playlists?"+val.Encode(), &body); err != nil {
		return model.PlaylistInfo{}, err
	}
	if len(body.Items) == 0 {
		return model.PlaylistInfo{}, fmt.Errorf("playlist %s not found", id)
	}

	item := body.Items[0]
	return model.PlaylistInfo{
		ID:          id,
		Title:       sanitize.DisplayText(item.Snippet.Title),
		ChannelName: sanitize.DisplayText(item.Snippet.ChannelTitle),
		ItemCount:   item.ContentDetails.ItemCount,
	}, nil
}

// PlaylistItems fetches the full track listing, following the page
// cursor until it runs out. An empty first page is treated as
// transient and retried within the fixed budget; exhausting it is a
// terminal failure for the caller to surface.
func (c *Client) PlaylistItems(ctx context.Context, id string) ([]model.Track, error) {
	var lastErr error

	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		tracks, err := c.fetchAllPages(ctx, id)
		if err == nil && len(tracks) > 0 {
			return tracks, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("playlist %s returned no items", id)
		}
		log.Printf("ofplay: playlist items fetch attempt %d/%d: %v", attempt, fetchAttempts, lastErr)

		if attempt < fetchAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}

	return nil, lastErr
}

func (c *Client) fetchAllPages(ctx context.Context, id string) ([]model.Track, error) {
	var out []model.Track
	pageToken := ""

	for {
		val := url.Values{}
		val.Set("part", "snippet")
		val.Set("playlistId", id)
		val.Set("maxResults", strconv.Itoa(pageSize))
		val.Set("key", c.apiKey)
		if pageToken != "" {
			val.Set("pageToken", pageToken)
		}

		var body ytPlaylistItemsResponse
		if err := c.getJSON(ctx, c.baseURL+"/playlistItems?"+val.Encode(), &body); err != nil {
			return nil, err
		}

		for _, it := range body.Items {
			if it.Snippet.ResourceID.VideoID == "" {
				continue
			}
			thumbs := it.Snippet.Thumbnails
			thumb := thumbs.High.URL
			if thumb == "" {
				thumb = thumbs.Medium.URL
			}
			if thumb == "" {
				thumb = thumbs.Default.URL
			}

			out = append(out, model.Track{
				ID:           it.Snippet.ResourceID.VideoID,
				Title:        sanitize.DisplayText(it.Snippet.Title),
				ThumbnailURL: sanitize.SafeURL(thumb),
				ChannelName:  sanitize.DisplayText(it.Snippet.ChannelTitle),
				Description:  it.Snippet.Description,
			})
		}

		if body.NextPageToken == "" {
			break
		}
		pageToken = body.NextPageToken
	}

	if len(out) > 0 {
		if err := c.fillDurations(ctx, out); err != nil {
			// Durations are cosmetic; playback works without them.
			log.Printf("ofplay: fetch durations: %v", err)
		}
	}

	return out, nil
}

// fillDurations batch-resolves video durations, 50 ids per request.
func (c *Client) fillDurations(ctx context.Context, tracks []model.Track) error {
	byID := make(map[string]int, len(tracks))

	for start := 0; start < len(tracks); start += pageSize {
		end := start + pageSize
		if end > len(tracks) {
			end = len(tracks)
		}

		ids := make([]string, 0, end-start)
		for _, t := range tracks[start:end] {
			ids = append(ids, t.ID)
		}

		val := url.Values{}
		val.Set("part", "contentDetails")
		val.Set("id", joinIDs(ids))
		val.Set("key", c.apiKey)

		var body ytVideosResponse
		if err := c.getJSON(ctx, c.baseURL+"/videos?"+val.Encode(), &body); err != nil {
			return err
		}
		for _, item := range body.Items {
			byID[item.ID] = parseISO8601Duration(item.ContentDetails.Duration)
		}
	}

	for i := range tracks {
		if d, ok := byID[tracks[i].ID]; ok {
			tracks[i].DurationSeconds = d
		}
	}
	return nil
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}

func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}

var iso8601Re = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

func parseISO8601Duration(duration string) int {
	matches := iso8601Re.FindStringSubmatch(duration)
	if len(matches) < 4 {
		return 0
	}

	var h, m, s int
	fmt.Sscanf(matches[1], "%d", &h)
	fmt.Sscanf(matches[2], "%d", &m)
	fmt.Sscanf(matches[3], "%d", &s)

	return h*3600 + m*60 + s
}
