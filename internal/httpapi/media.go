package httpapi

// The OS media session controls one thing at a time; it follows the
// most recently opened playback session.

func (s *Server) activeSession() (*playerSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.sessions[s.lastID]
	return ps, ok
}

func (s *Server) Play() {
	if ps, ok := s.activeSession(); ok {
		ps.session.Play()
	}
}

func (s *Server) Pause() {
	if ps, ok := s.activeSession(); ok {
		ps.session.Pause()
	}
}

func (s *Server) Next() {
	if ps, ok := s.activeSession(); ok {
		ps.session.Next()
	}
}

func (s *Server) Previous() {
	if ps, ok := s.activeSession(); ok {
		ps.session.Previous()
	}
}

func (s *Server) Seek(seconds float64) {
	if ps, ok := s.activeSession(); ok {
		ps.session.Seek(seconds)
	}
}
