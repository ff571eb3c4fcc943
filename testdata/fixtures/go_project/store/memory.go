package store

import (
	"errors"
	"sync"

	"example.com/users"
)

// Memory keeps users in a map.
type Memory struct {
	mu   sync.Mutex
	byID map[int]*users.User
}

func (m *Memory) FindByID(id int) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return u.Clone(), nil
}

func (m *Memory) Save(u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = u
	return nil
}

// Audited records every saved name.
type Audited struct {
	*Memory
	log []string
}

func (a *Audited) Save(u *users.User) error {
	a.log = append(a.log, u.DisplayName())
	return a.Memory.Save(u)
}
