package services

import (
	"slices"
	"sort"
	"sync"
)

// Mirror is the local copy of one tenant's collection. It remembers the
// couple that filled it: reads for any other couple see nothing and writes
// for any other couple are dropped.
type Mirror[T any] struct {
	mu    sync.RWMutex
	owner string
	items []T
	id    func(T) string
	less  func(a, b T) bool
}

func NewMirror[T any](id func(T) string, less func(a, b T) bool) *Mirror[T] {
	return &Mirror[T]{id: id, less: less}
}

// Owner returns the couple whose records are mirrored, "" when empty.
func (m *Mirror[T]) Owner() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owner
}

// Replace swaps in a fetched result, claiming the mirror for owner.
func (m *Mirror[T]) Replace(owner string, items []T) {
	next := slices.Clone(items)
	sort.SliceStable(next, func(i, j int) bool { return m.less(next[i], next[j]) })
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owner = owner
	m.items = next
}

// Insert places each item at its ordered position. An item whose ID is
// already mirrored replaces it.
func (m *Mirror[T]) Insert(owner string, items ...T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != owner || owner == "" {
		return false
	}
	for _, item := range items {
		if i := m.indexLocked(m.id(item)); i >= 0 {
			m.items = slices.Delete(m.items, i, i+1)
		}
		pos := sort.Search(len(m.items), func(i int) bool { return m.less(item, m.items[i]) })
		m.items = slices.Insert(m.items, pos, item)
	}
	return true
}

// Update splices item in place of the record with the same ID.
func (m *Mirror[T]) Update(owner string, item T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != owner || owner == "" {
		return false
	}
	i := m.indexLocked(m.id(item))
	if i < 0 {
		return false
	}
	m.items[i] = item
	return true
}

func (m *Mirror[T]) Remove(owner, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != owner || owner == "" {
		return false
	}
	i := m.indexLocked(id)
	if i < 0 {
		return false
	}
	m.items = slices.Delete(m.items, i, i+1)
	return true
}

// Items returns a copy of the collection when owner holds the mirror.
func (m *Mirror[T]) Items(owner string) []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.owner != owner || owner == "" {
		return nil
	}
	return slices.Clone(m.items)
}

func (m *Mirror[T]) Find(owner, id string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var zero T
	if m.owner != owner || owner == "" {
		return zero, false
	}
	i := m.indexLocked(id)
	if i < 0 {
		return zero, false
	}
	return m.items[i], true
}

func (m *Mirror[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owner = ""
	m.items = nil
}

func (m *Mirror[T]) indexLocked(id string) int {
	return slices.IndexFunc(m.items, func(item T) bool { return m.id(item) == id })
}
