package httpapi

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/247pages/Ofplay/internal/dragdrop"
	"github.com/247pages/Ofplay/internal/miniplayer"
	"github.com/247pages/Ofplay/internal/model"
	"github.com/247pages/Ofplay/internal/notify"
	"github.com/247pages/Ofplay/internal/progress"
	"github.com/247pages/Ofplay/internal/recovery"
	"github.com/247pages/Ofplay/internal/sanitize"
	"github.com/247pages/Ofplay/internal/session"
)

// loadTimeout bounds the whole provider fetch for one page open.
const loadTimeout = 60 * time.Second

// playerSession bundles everything one open watch page needs on the
// server side: the session record, its timers and the glue publishing
// state back to the page over the realtime channel.
type playerSession struct {
	id string

	session  *session.Session
	tracker  *progress.Tracker
	watchdog *recovery.Watchdog
	mini     *miniplayer.Controller
	drag     *dragdrop.Engine
	widget   *remoteWidget
	view     *remoteView

	mu   sync.Mutex
	info model.PlaylistInfo
}

// openSession builds the full bundle for one playlist, arms the
// initialization watchdog and kicks off the provider fetch in the
// background. The handler returns immediately; the page learns the
// outcome over the realtime channel.
func (s *Server) openSession(playlistID string) *playerSession {
	ps := &playerSession{id: randomToken(8)}

	ps.widget = &remoteWidget{rt: s.rt, sessionID: ps.id}
	ps.view = &remoteView{rt: s.rt, sessionID: ps.id}

	events := &pageEvents{srv: s, id: ps.id}

	notifier := notify.Multi{
		notify.Log,
		notify.Func(func(n notify.Notice) {
			s.publish(ps.id, "notice", n)
		}),
	}

	ps.session = session.New(session.Config{
		PlaylistID: playlistID,
		Widget:     ps.widget,
		Events:     events,
		Notifier:   notifier,
		Hooks: session.Hooks{
			ResetProgress: func() {
				ps.tracker.Reset()
				ps.tracker.Start()
			},
			RefreshFavorite: func(trackID string) {
				s.publishFavoriteCount(ps.id, trackID)
			},
			RefreshMiniPlayer: func() {
				// playAt holds the session lock; content refresh reads
				// it back, so it runs after the lock is released.
				go ps.mini.RefreshContent()
			},
		},
	})

	ps.tracker = progress.New(
		ps.widget,
		&progressPublisher{srv: s, id: ps.id},
		ps.session.IsSeeking,
		ps.session.IsPlaying,
	)

	ps.mini = miniplayer.New(
		&miniSurface{srv: s, id: ps.id},
		ps.tracker,
		ps.session.QueueLen,
		ps.session.CurrentTrack,
	)

	ps.drag = dragdrop.NewEngine(ps.session, ps.view)

	ps.watchdog = recovery.New(recovery.Hooks{
		QueueLen:      ps.session.QueueLen,
		PlaylistKnown: func() bool { return playlistID != "" },
		Next:          ps.session.Next,
		Previous:      ps.session.Previous,
		Reload: func() {
			url := sanitize.CacheBust(sanitize.ShareLink(s.baseURL, playlistID, "", 0), time.Now())
			s.publish(ps.id, "page.reload", map[string]any{"url": url})
		},
		Fail: func(msg string) {
			s.publish(ps.id, "init.failed", map[string]any{"message": msg})
		},
	}, recovery.Timing{})

	ps.watchdog.Arm()
	go s.loadPlaylist(ps)

	return ps
}

// loadPlaylist fetches the playlist from the provider and populates the
// queue. The watchdog covers the silent-stall case; a hard fetch error
// is surfaced as a notice and left to the watchdog to escalate.
func (s *Server) loadPlaylist(ps *playerSession) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	playlistID := ps.session.PlaylistID()

	info, err := s.provider.Playlist(ctx, playlistID)
	if err != nil {
		// Header metadata is cosmetic; the items are what matter.
		log.Printf("ofplay: playlist header %s: %v", playlistID, err)
	} else {
		ps.mu.Lock()
		ps.info = info
		ps.mu.Unlock()
	}

	tracks, err := s.provider.PlaylistItems(ctx, playlistID)
	if err != nil {
		log.Printf("ofplay: playlist items %s: %v", playlistID, err)
		s.publish(ps.id, "notice", notify.Transient(notify.Error, "could not load the playlist"))
		return
	}

	ps.session.SetQueue(tracks)
	ps.watchdog.Resolve()

	// Carry the toggles over from the previous page load.
	if s.prefs != nil {
		p := s.prefs.Current()
		if p.Shuffle {
			ps.session.ToggleShuffle()
		}
		if p.Repeat {
			ps.session.ToggleRepeat()
		}
		ps.widget.SetVolume(p.Volume)
	}

	s.publish(ps.id, "playlist.loaded", map[string]any{
		"info":  info,
		"count": len(tracks),
	})

	ps.session.PlayAt(0)
}

func (ps *playerSession) playlistInfo() model.PlaylistInfo {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.info
}

// close tears the bundle down on page navigation.
func (ps *playerSession) close() {
	ps.watchdog.Resolve()
	ps.drag.End()
	ps.tracker.Stop()
	ps.session.Stop()
}

func (s *Server) publish(sessionID, kind string, payload any) {
	s.rt.Publish(context.Background(), map[string]any{
		"type":      kind,
		"sessionId": sessionID,
		"payload":   payload,
	})
}

// publishFavoriteCount pushes the shared favorite count of the new
// current track. Per-user membership stays request-scoped; the page
// asks for it with its own credentials.
func (s *Server) publishFavoriteCount(sessionID, trackID string) {
	if s.library == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := s.library.FavoriteCount(ctx, trackID)
	if err != nil {
		log.Printf("ofplay: favorite count %s: %v", trackID, err)
		return
	}
	s.publish(sessionID, "favorite.count", map[string]any{
		"trackId": trackID,
		"count":   count,
	})
}

// pageEvents fans session transitions out to the page and the OS media
// session. The session calls these under its own lock, so they never
// call back into it; the current track rides along on TrackChanged and
// is cached here for the playback transitions.
type pageEvents struct {
	srv *Server
	id  string

	mu       sync.Mutex
	track    model.Track
	hasTrack bool
	playing  bool
}

func (e *pageEvents) PlaybackChanged(playing bool) {
	e.mu.Lock()
	e.playing = playing
	t, ok := e.track, e.hasTrack
	e.mu.Unlock()

	e.srv.publish(e.id, "player.state", map[string]any{"isPlaying": playing})
	if ok {
		e.srv.media.Update(t, playing)
	}
}

func (e *pageEvents) TrackChanged(t model.Track, index int) {
	e.mu.Lock()
	e.track = t
	e.hasTrack = true
	playing := e.playing
	e.mu.Unlock()

	e.srv.publish(e.id, "track.changed", map[string]any{
		"track": t,
		"index": index,
	})
	e.srv.media.Update(t, playing)
}

func (e *pageEvents) QueueChanged(queue []model.Track, current int) {
	e.srv.publish(e.id, "queue.changed", map[string]any{
		"queue":        queue,
		"currentIndex": current,
	})
}

// progressPublisher pushes progress frames to the page.
type progressPublisher struct {
	srv *Server
	id  string
}

func (p *progressPublisher) RenderProgress(u progress.Update) {
	p.srv.publish(p.id, "progress", u)
}

// miniSurface renders the mini-player by telling the page what to do.
type miniSurface struct {
	srv *Server
	id  string
}

func (m *miniSurface) Show() {
	m.srv.publish(m.id, "miniplayer.show", nil)
}

func (m *miniSurface) Hide() {
	m.srv.publish(m.id, "miniplayer.hide", nil)
}

func (m *miniSurface) Refresh(t model.Track) {
	m.srv.publish(m.id, "miniplayer.refresh", map[string]any{"track": t})
}
