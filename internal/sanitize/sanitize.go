package sanitize

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DisplayText normalizes untrusted text before it is shown or stored:
// control characters are dropped, whitespace runs collapse to a single
// space, and the result is trimmed.
func DisplayText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t' || r == ' ':
			space = true
		case r < 0x20 || r == 0x7f:
			// drop control characters
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}

	return b.String()
}

// SafeURL returns the URL if it parses and uses http or https, and an
// empty string otherwise. Anything else (javascript:, data:, relative
// garbage) is not worth rendering.
func SafeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}

	return u.String()
}

// Timestamp is one seekable position extracted from a description.
type Timestamp struct {
	Seconds int    `json:"seconds"`
	Label   string `json:"label"`
}

var timestampRe = regexp.MustCompile(`(?:(\d{1,2}):)?(\d{1,2}):(\d{2})`)

// Timestamps extracts every MM:SS or HH:MM:SS occurrence from a
// description string, deduplicated by seconds value and sorted
// ascending. The label keeps the original notation.
func Timestamps(description string) []Timestamp {
	matches := timestampRe.FindAllStringSubmatch(description, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]bool, len(matches))
	out := make([]Timestamp, 0, len(matches))

	for _, m := range matches {
		var h, min, sec int
		if m[1] != "" {
			h, _ = strconv.Atoi(m[1])
		}
		min, _ = strconv.Atoi(m[2])
		sec, _ = strconv.Atoi(m[3])

		if sec > 59 || (m[1] != "" && min > 59) {
			continue
		}

		total := h*3600 + min*60 + sec
		if seen[total] {
			continue
		}
		seen[total] = true
		out = append(out, Timestamp{Seconds: total, Label: m[0]})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Seconds < out[j].Seconds })

	if len(out) == 0 {
		return nil
	}
	return out
}

// ShareLink builds a deep link embedding playlist and track identity.
// trackID and startSeconds are optional.
func ShareLink(base, playlistID, trackID string, startSeconds int) string {
	v := url.Values{}
	v.Set("list", playlistID)
	if trackID != "" {
		v.Set("v", trackID)
	}
	if startSeconds > 0 {
		v.Set("t", strconv.Itoa(startSeconds))
	}
	return strings.TrimRight(base, "/") + "/watch?" + v.Encode()
}

// CacheBust appends a cache-busting parameter so a silent reload does
// not hit a stale cached page. Invalid URLs come back unchanged.
func CacheBust(raw string, now time.Time) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("cb", strconv.FormatInt(now.Unix(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}
