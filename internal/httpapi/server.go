package httpapi

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/247pages/Ofplay/internal/library"
	"github.com/247pages/Ofplay/internal/model"
	"github.com/247pages/Ofplay/internal/mpris"
	"github.com/247pages/Ofplay/internal/prefs"
	"github.com/247pages/Ofplay/internal/realtime"
)

// Provider is the video platform client surface the handlers need.
type Provider interface {
	Playlist(ctx context.Context, id string) (model.PlaylistInfo, error)
	PlaylistItems(ctx context.Context, id string) ([]model.Track, error)
}

// Server wires the playback sessions, the library and the realtime
// fan-out behind one router.
type Server struct {
	baseURL string

	provider Provider
	library  *library.Library
	rt       *realtime.Server
	media    *mpris.Conn
	prefs    *prefs.Store

	mu       sync.Mutex
	sessions map[string]*playerSession
	lastID   string
}

func NewServer(baseURL string, provider Provider, lib *library.Library, rt *realtime.Server) *Server {
	return &Server{
		baseURL:  baseURL,
		provider: provider,
		library:  lib,
		rt:       rt,
		sessions: make(map[string]*playerSession),
	}
}

// SetMediaSession attaches the OS media-session bridge. Optional.
func (s *Server) SetMediaSession(conn *mpris.Conn) {
	s.media = conn
}

// SetPreferences attaches the persisted player preferences. Optional;
// without it sessions start from the built-in defaults.
func (s *Server) SetPreferences(store *prefs.Store) {
	s.prefs = store
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.rt.HandleWS)

	r.Post("/watch", s.handleOpenWatch)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Delete("/", s.handleCloseSession)

		r.Post("/play", s.handlePlay)
		r.Post("/pause", s.handlePause)
		r.Post("/next", s.handleNext)
		r.Post("/previous", s.handlePrevious)
		r.Post("/playat", s.handlePlayAt)
		r.Post("/shuffle", s.handleToggleShuffle)
		r.Post("/repeat", s.handleToggleRepeat)
		r.Post("/seek", s.handleSeek)
		r.Post("/volume", s.handleSetVolume)
		r.Delete("/tracks/{index}", s.handleRemoveTrack)

		r.Get("/timestamps", s.handleTimestamps)
		r.Get("/share", s.handleShareLink)

		r.Post("/player/event", s.handlePlayerEvent)
		r.Post("/player/tick", s.handlePlayerTick)

		r.Post("/drag/start", s.handleDragStart)
		r.Post("/drag/move", s.handleDragMove)
		r.Post("/drag/drop", s.handleDragDrop)
		r.Post("/drag/end", s.handleDragEnd)

		r.Post("/view", s.handleViewIntersection)
		r.Post("/scroll", s.handleViewScroll)
	})

	r.Route("/library", func(r chi.Router) {
		r.Post("/favorites/toggle", s.handleToggleFavorite)
		r.Get("/favorites/{trackId}", s.handleGetFavorite)
		r.Post("/saved/{playlistId}/toggle", s.handleToggleSaved)
		r.Post("/subscriptions/toggle", s.handleToggleSubscription)
		r.Get("/copies", s.handleListCopies)
	})

	r.Post("/playlists/{id}/copy", s.handleCopyPlaylist)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "ofplay",
	})
}

func (s *Server) session(id string) (*playerSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.sessions[id]
	return ps, ok
}
