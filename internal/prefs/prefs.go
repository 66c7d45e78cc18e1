package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Prefs are the player toggles that survive across page loads.
type Prefs struct {
	Volume  int  `toml:"volume"`
	Shuffle bool `toml:"shuffle"`
	Repeat  bool `toml:"repeat"`
}

// Default returns the out-of-the-box preferences.
func Default() Prefs {
	return Prefs{Volume: 100}
}

// Load reads preferences from path. A missing file is not an error; it
// yields the defaults.
func Load(path string) (Prefs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("read prefs: %w", err)
	}

	p := Default()
	if err := toml.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("parse prefs: %w", err)
	}

	if p.Volume < 0 {
		p.Volume = 0
	}
	if p.Volume > 100 {
		p.Volume = 100
	}

	return p, nil
}

// Store keeps the live preferences in memory and writes them back on
// every change, so the next page load starts where this one left off.
type Store struct {
	mu   sync.Mutex
	path string
	p    Prefs
}

// NewStore loads the file at path. A load failure still yields a usable
// store over the defaults; the error is for logging.
func NewStore(path string) (*Store, error) {
	p, err := Load(path)
	return &Store{path: path, p: p}, err
}

// Current returns a copy of the live preferences.
func (s *Store) Current() Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}

// Update applies fn to the live preferences and persists the result.
// A write failure keeps the in-memory change and logs.
func (s *Store) Update(fn func(*Prefs)) {
	s.mu.Lock()
	fn(&s.p)
	p, path := s.p, s.path
	s.mu.Unlock()

	if err := Save(path, p); err != nil {
		log.Printf("ofplay: prefs save: %v", err)
	}
}

// Save writes preferences to path atomically.
func Save(path string, p Prefs) error {
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}
