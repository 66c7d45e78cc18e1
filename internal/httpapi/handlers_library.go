package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/247pages/Ofplay/internal/auth"
	"github.com/247pages/Ofplay/internal/model"
)

// handleToggleFavorite flips the caller's favorite membership for a
// track and answers with the new state and the shared count.
func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}

	var track model.Track
	if err := json.NewDecoder(r.Body).Decode(&track); err != nil || track.ID == "" {
		writeError(w, http.StatusBadRequest, "invalid track")
		return
	}

	favorited, err := s.library.ToggleFavorite(r.Context(), userID, track)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not update favorite")
		return
	}

	count, err := s.library.FavoriteCount(r.Context(), track.ID)
	if err != nil {
		count = 0
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trackId":   track.ID,
		"favorited": favorited,
		"count":     count,
	})
}

// handleGetFavorite reads favorite state for a track: the shared count
// always, per-user membership when the caller is signed in.
func (s *Server) handleGetFavorite(w http.ResponseWriter, r *http.Request) {
	trackID := chi.URLParam(r, "trackId")

	count, err := s.library.FavoriteCount(r.Context(), trackID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not read favorite count")
		return
	}

	favorited := false
	if userID := auth.UserID(r); userID != "" {
		favorited, err = s.library.IsFavorite(r.Context(), userID, trackID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not read favorite state")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trackId":   trackID,
		"favorited": favorited,
		"count":     count,
	})
}

func (s *Server) handleToggleSaved(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}

	playlistID := chi.URLParam(r, "playlistId")
	saved, err := s.library.ToggleSaved(r.Context(), userID, playlistID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not update saved playlists")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"playlistId": playlistID,
		"saved":      saved,
	})
}

func (s *Server) handleToggleSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		ChannelName string `json:"channelName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelName == "" {
		writeError(w, http.StatusBadRequest, "invalid channel")
		return
	}

	subscribed, err := s.library.ToggleSubscription(r.Context(), userID, req.ChannelName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not update subscription")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"channelName": req.ChannelName,
		"subscribed":  subscribed,
	})
}

// handleCopyPlaylist copies a provider playlist into the caller's
// personal collection. The track list comes fresh from the provider so
// a copy is complete even when no playback session is open.
func (s *Server) handleCopyPlaylist(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}

	playlistID := chi.URLParam(r, "id")

	ok, err := s.library.AcquireCopySlot(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not copy the playlist")
		return
	}
	if !ok {
		writeError(w, http.StatusTooManyRequests, "a recent copy is still settling, try again shortly")
		return
	}

	info, err := s.provider.Playlist(r.Context(), playlistID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "could not load the playlist")
		return
	}
	tracks, err := s.provider.PlaylistItems(r.Context(), playlistID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "could not load the playlist")
		return
	}

	copyRow, err := s.library.CopyPlaylist(r.Context(), userID, info, tracks)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not copy the playlist")
		return
	}

	writeJSON(w, http.StatusCreated, copyRow)
}

func (s *Server) handleListCopies(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}

	copies, err := s.library.Copies(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list playlist copies")
		return
	}
	if copies == nil {
		copies = []model.PlaylistCopy{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"copies": copies})
}
