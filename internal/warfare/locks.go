package warfare

import (
	"slices"
	"sync"

	"github.com/talgya/colony-wars/internal/colony"
)

// ColonyLocks serializes resolutions that touch the same colony.
type ColonyLocks struct {
	mu    sync.Mutex
	locks map[colony.ID]*sync.Mutex
}

// NewColonyLocks creates an empty lock table.
func NewColonyLocks() *ColonyLocks {
	return &ColonyLocks{locks: make(map[colony.ID]*sync.Mutex)}
}

// Lock acquires every listed colony in sorted order so two battles over the
// same pair cannot deadlock. The returned func releases them.
func (l *ColonyLocks) Lock(ids ...colony.ID) func() {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	held := make([]*sync.Mutex, 0, len(ordered))
	for _, id := range ordered {
		m := l.get(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (l *ColonyLocks) get(id colony.ID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}
