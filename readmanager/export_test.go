package readmanager

import "github.com/biogo/store/llrb"

// NumOpen reports how many readers are currently open, for tests asserting
// the M2 open-file budget invariant directly rather than only through query
// results.
func (m *Manager) NumOpen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// OpenPaths returns the paths of currently open readers, ascending by
// (size, path) per M3's ordering, for tests asserting eviction order
// directly.
func (m *Manager) OpenPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.open))
	m.bySize.Do(func(c llrb.Comparable) bool {
		paths = append(paths, c.(sizeKey).path)
		return false
	})
	return paths
}
