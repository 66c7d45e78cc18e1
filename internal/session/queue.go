package session

import (
	"log"

	"github.com/247pages/Ofplay/internal/model"
)

// MoveTrack splices the track at from out of the queue and back in at
// to, then fixes up the current index by the standard reorder rule:
// the moved track keeps being current at its new index, a current
// track strictly between source and target shifts one step toward the
// vacated slot, anything else is untouched.
func (s *Session) MoveTrack(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveTrack(from, to)
}

func (s *Session) moveTrack(from, to int) {
	n := len(s.queue)
	if from < 0 || from >= n || to < 0 || to >= n {
		log.Printf("ofplay: moveTrack %d->%d out of range (queue has %d)", from, to, n)
		return
	}
	if from == to {
		return
	}

	t := s.queue[from]
	s.queue = append(s.queue[:from], s.queue[from+1:]...)
	s.queue = append(s.queue, model.Track{})
	copy(s.queue[to+1:], s.queue[to:])
	s.queue[to] = t

	switch {
	case s.current == from:
		s.current = to
	case from < s.current && s.current <= to:
		s.current--
	case to <= s.current && s.current < from:
		s.current++
	}

	s.fanOutQueue()
}

// RemoveTrack deletes the track at index. Removing the playing track
// keeps the index (now the following track), clamped to the new end.
func (s *Session) RemoveTrack(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.queue) {
		log.Printf("ofplay: removeTrack %d out of range (queue has %d)", index, len(s.queue))
		return
	}

	removed := s.queue[index]
	s.queue = append(s.queue[:index], s.queue[index+1:]...)

	// Keep the shuffle snapshot coherent with the queue contents.
	for i, t := range s.originalOrder {
		if t.ID == removed.ID {
			s.originalOrder = append(s.originalOrder[:i], s.originalOrder[i+1:]...)
			break
		}
	}

	if index < s.current {
		s.current--
	}
	if s.current >= len(s.queue) {
		s.current = 0
	}

	s.fanOutQueue()
}

// BeginDrag marks a drag session in flight.
func (s *Session) BeginDrag(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isDragging = true
	s.dragStartIndex = index
}

// EndDrag resets the transient drag fields. It runs on every drag end,
// success or cancel.
func (s *Session) EndDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isDragging = false
	s.dragStartIndex = -1
}

// DragStartIndex returns the origin of the drag in flight, or -1.
func (s *Session) DragStartIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isDragging {
		return -1
	}
	return s.dragStartIndex
}
