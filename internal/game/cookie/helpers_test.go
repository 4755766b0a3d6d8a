package cookie

// get returns a snapshot of the session.
func (m *Manager) get(key SessionKey) (Snapshot, error) {
	s, err := m.lookup(key)
	if err != nil {
		return Snapshot{}, err
	}
	m.locks.Lock(key)
	defer m.locks.Unlock(key)
	return snapshot(s), nil
}

// openedCount returns the number of opened cells.
func (s *Session) openedCount() int {
	n := 0
	for _, o := range s.opened {
		if o {
			n++
		}
	}
	return n
}

// isMine reports whether (x, y) holds a mine. Out-of-range cells are never mines.
func (s *Session) isMine(x, y int) bool {
	i, err := s.index(x, y)
	return err == nil && s.mines[i]
}
