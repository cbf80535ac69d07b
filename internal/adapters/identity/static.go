package identity

import (
	"context"
	"sync"

	"vet-appointments/internal/ports/directory"
)

// StaticDirectory es un directorio en memoria para dev y tests.
// Un id no registrado devuelve ErrUserNotFound.
type StaticDirectory struct {
	mu   sync.RWMutex
	byID map[string]directory.Profile
}

func NewStaticDirectory(profiles []directory.Profile) *StaticDirectory {
	d := &StaticDirectory{
		byID: make(map[string]directory.Profile),
	}
	for _, p := range profiles {
		if p.UserID == "" {
			continue
		}
		d.byID[p.UserID] = p
	}
	return d
}

func (d *StaticDirectory) Register(p directory.Profile) {
	if p.UserID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[p.UserID] = p
}

func (d *StaticDirectory) FindByID(ctx context.Context, userID string) (directory.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.byID[userID]
	if !ok {
		return directory.Profile{}, ErrUserNotFound
	}
	return p, nil
}
