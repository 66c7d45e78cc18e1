package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/247pages/Ofplay/internal/player"
	"github.com/247pages/Ofplay/internal/prefs"
	"github.com/247pages/Ofplay/internal/sanitize"
)

// handleOpenWatch opens a playback session for the playlist named in
// the list query parameter. A missing id is the one unrecoverable
// input: there is nothing to load and nothing to retry.
func (s *Server) handleOpenWatch(w http.ResponseWriter, r *http.Request) {
	playlistID := r.URL.Query().Get("list")
	if playlistID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "could not load the playlist, check the URL",
			"fatal": true,
		})
		return
	}

	ps := s.openSession(playlistID)

	s.mu.Lock()
	s.sessions[ps.id] = ps
	s.lastID = ps.id
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"sessionId": ps.id,
		"state":     ps.session.Snapshot(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ps, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, ps.session.Snapshot())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	ps, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	ps.close()
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// withSession resolves the session from the URL and runs fn on it,
// answering with a fresh snapshot.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(ps *playerSession)) {
	ps, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	fn(ps)
	writeJSON(w, http.StatusOK, ps.session.Snapshot())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ps *playerSession) { ps.session.Play() })
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ps *playerSession) { ps.session.Pause() })
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ps *playerSession) { ps.session.Next() })
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ps *playerSession) { ps.session.Previous() })
}

func (s *Server) handleToggleShuffle(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ps *playerSession) {
		ps.session.ToggleShuffle()
		if s.prefs != nil {
			on := ps.session.Snapshot().IsShuffled
			s.prefs.Update(func(p *prefs.Prefs) { p.Shuffle = on })
		}
	})
}

func (s *Server) handleToggleRepeat(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ps *playerSession) {
		ps.session.ToggleRepeat()
		if s.prefs != nil {
			on := ps.session.Snapshot().IsRepeat
			s.prefs.Update(func(p *prefs.Prefs) { p.Repeat = on })
		}
	})
}

func (s *Server) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume int `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Volume < 0 {
		req.Volume = 0
	}
	if req.Volume > 100 {
		req.Volume = 100
	}

	s.withSession(w, r, func(ps *playerSession) {
		ps.widget.SetVolume(req.Volume)
		if s.prefs != nil {
			s.prefs.Update(func(p *prefs.Prefs) { p.Volume = req.Volume })
		}
	})
}

func (s *Server) handlePlayAt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.withSession(w, r, func(ps *playerSession) { ps.session.PlayAt(req.Index) })
}

// handleSeek drives the scrub gesture. phase "start" suppresses the
// progress timers, "end" commits the position and re-enables them; an
// absent phase is a one-shot jump (timestamp links, mini-player bar).
func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds float64 `json:"seconds"`
		Phase   string  `json:"phase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.withSession(w, r, func(ps *playerSession) {
		switch req.Phase {
		case "start":
			ps.session.BeginSeek()
		case "end":
			ps.session.Seek(req.Seconds)
			ps.session.EndSeek()
		default:
			ps.session.BeginSeek()
			ps.session.Seek(req.Seconds)
			ps.session.EndSeek()
		}
	})
}

func (s *Server) handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid track index")
		return
	}
	s.withSession(w, r, func(ps *playerSession) { ps.session.RemoveTrack(index) })
}

// handleTimestamps lists the seekable positions found in the current
// track's description.
func (s *Server) handleTimestamps(w http.ResponseWriter, r *http.Request) {
	ps, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	t, ok := ps.session.CurrentTrack()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"timestamps": []sanitize.Timestamp{}})
		return
	}

	ts := sanitize.Timestamps(t.Description)
	if ts == nil {
		ts = []sanitize.Timestamp{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"timestamps": ts})
}

// handleShareLink builds a deep link to the current track, optionally
// at a start offset (t query parameter, seconds).
func (s *Server) handleShareLink(w http.ResponseWriter, r *http.Request) {
	ps, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	start := 0
	if raw := r.URL.Query().Get("t"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			start = n
		}
	}

	trackID := ""
	if t, ok := ps.session.CurrentTrack(); ok {
		trackID = t.ID
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"url": sanitize.ShareLink(s.baseURL, ps.session.PlaylistID(), trackID, start),
	})
}

// handlePlayerEvent ingests one widget callback reported by the page.
func (s *Server) handlePlayerEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind  string `json:"kind"`
		State string `json:"state"`
		Code  int    `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, err := parsePlayerEvent(req.Kind, req.State, req.Code)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.withSession(w, r, func(ps *playerSession) { ps.session.HandleEvent(ev) })
}

// handlePlayerTick ingests the page's periodic position report.
func (s *Server) handlePlayerTick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentTime float64 `json:"currentTime"`
		Duration    float64 `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ps, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	ps.widget.ReportTick(req.CurrentTime, req.Duration)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parsePlayerEvent(kind, state string, code int) (player.Event, error) {
	switch kind {
	case "ready":
		return player.Event{Kind: player.EventReady}, nil
	case "error":
		return player.Event{Kind: player.EventError, Code: code}, nil
	case "state":
		st, err := parsePlayerState(state)
		if err != nil {
			return player.Event{}, err
		}
		return player.Event{Kind: player.EventStateChanged, State: st}, nil
	}
	return player.Event{}, fmt.Errorf("unknown event kind %q", kind)
}

func parsePlayerState(state string) (player.State, error) {
	switch state {
	case "unstarted":
		return player.Unstarted, nil
	case "ready":
		return player.Ready, nil
	case "playing":
		return player.Playing, nil
	case "paused":
		return player.Paused, nil
	case "buffering":
		return player.Buffering, nil
	case "ended":
		return player.Ended, nil
	case "error":
		return player.Errored, nil
	}
	return 0, fmt.Errorf("unknown player state %q", state)
}
