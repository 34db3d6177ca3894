package game

import (
	"sync"

	"tunnelrun.ai/internal/sim/kernel/model"
)

// InputSlot is a single overwrite-on-write, consume-on-read key cell. It is the
// only Game state that may be touched from outside the tick goroutine.
type InputSlot struct {
	mu  sync.Mutex
	key string
}

func (s *InputSlot) Put(key string) {
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
}

// Take returns the pending key and clears the slot.
func (s *InputSlot) Take() string {
	s.mu.Lock()
	k := s.key
	s.key = ""
	s.mu.Unlock()
	return k
}

func (s *InputSlot) Clear() { s.Put("") }

var keyDirections = map[string]model.Direction{
	"w": model.DirNorth,
	"a": model.DirWest,
	"s": model.DirSouth,
	"d": model.DirEast,
}

// KeyDirection maps a movement key to its direction.
func KeyDirection(key string) (model.Direction, bool) {
	d, ok := keyDirections[key]
	return d, ok
}

func IsTrigger(key string) bool { return key == "A" || key == "B" }

// ValidKey reports whether key is part of the input alphabet. The empty key is valid.
func ValidKey(key string) bool {
	if key == "" || IsTrigger(key) {
		return true
	}
	_, ok := keyDirections[key]
	return ok
}
