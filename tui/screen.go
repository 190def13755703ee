package tui

import (
	"sync"

	"github.com/njyeung/sprunki/fullscreen"
)

// Screen is the terminal as a fullscreen surface. Pseudo and iOS modes
// drop the header so the comments fill the window; native mode also
// switches to the alternate screen. A game page surface, when present,
// follows every transition.
type Screen struct {
	mu   sync.Mutex
	mode fullscreen.Mode
	game fullscreen.Surface
}

var _ fullscreen.Surface = (*Screen)(nil)

func NewScreen(game fullscreen.Surface) *Screen {
	return &Screen{game: game}
}

func (s *Screen) Apply(mode fullscreen.Mode) error {
	if s.game != nil {
		if err := s.game.Apply(mode); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	return nil
}

// LockLandscape has nothing to rotate in a terminal, so only the game page can lock
func (s *Screen) LockLandscape() error {
	if s.game != nil {
		return s.game.LockLandscape()
	}
	return fullscreen.ErrUnsupported
}

func (s *Screen) UnlockOrientation() {
	if s.game != nil {
		s.game.UnlockOrientation()
	}
}

// Mode is the last mode applied
func (s *Screen) Mode() fullscreen.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Focused reports whether the header is hidden
func (s *Screen) Focused() bool {
	return s.Mode() != fullscreen.Normal
}
