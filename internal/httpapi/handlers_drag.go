package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/247pages/Ofplay/internal/dragdrop"
)

// listGeometry is the page-reported geometry riding along with drag
// and scroll events: row boxes, scroll position, viewport bounds.
type listGeometry struct {
	Items          []dragdrop.Item `json:"items"`
	ScrollTop      float64         `json:"scrollTop"`
	ViewportTop    float64         `json:"viewportTop"`
	ViewportBottom float64         `json:"viewportBottom"`
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index    int           `json:"index"`
		Geometry *listGeometry `json:"geometry"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.withSession(w, r, func(ps *playerSession) {
		if req.Geometry != nil {
			ps.view.SetGeometry(req.Geometry.Items, req.Geometry.ScrollTop, req.Geometry.ViewportTop, req.Geometry.ViewportBottom)
		}
		ps.drag.Start(req.Index)
	})
}

func (s *Server) handleDragMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PointerY float64       `json:"pointerY"`
		Geometry *listGeometry `json:"geometry"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.withSession(w, r, func(ps *playerSession) {
		if req.Geometry != nil {
			ps.view.SetGeometry(req.Geometry.Items, req.Geometry.ScrollTop, req.Geometry.ViewportTop, req.Geometry.ViewportBottom)
		}
		ps.drag.Update(req.PointerY)
	})
}

func (s *Server) handleDragDrop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PointerY float64       `json:"pointerY"`
		Geometry *listGeometry `json:"geometry"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.withSession(w, r, func(ps *playerSession) {
		if req.Geometry != nil {
			ps.view.SetGeometry(req.Geometry.Items, req.Geometry.ScrollTop, req.Geometry.ViewportTop, req.Geometry.ViewportBottom)
		}
		ps.drag.Drop(req.PointerY)
	})
}

// handleDragEnd is the unconditional cleanup path: the page calls it on
// dragend whether or not a drop landed.
func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ps *playerSession) { ps.drag.End() })
}

// handleViewIntersection feeds the intersection-observer signal for the
// primary player.
func (s *Server) handleViewIntersection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ratio float64 `json:"ratio"`
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

	ps.mini.ObserveIntersection(req.Ratio)
	writeJSON(w, http.StatusOK, map[string]any{"miniPlayerVisible": ps.mini.Visible()})
}

// handleViewScroll feeds the scroll-listener signal: the primary
// player's bounding box against the viewport.
func (s *Server) handleViewScroll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerTop      float64 `json:"playerTop"`
		PlayerBottom   float64 `json:"playerBottom"`
		ViewportTop    float64 `json:"viewportTop"`
		ViewportBottom float64 `json:"viewportBottom"`
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

	ps.mini.ObserveScroll(req.PlayerTop, req.PlayerBottom, req.ViewportTop, req.ViewportBottom)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
