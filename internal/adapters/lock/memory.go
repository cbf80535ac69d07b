package lock

import (
	"context"
	"sync"

	"vet-appointments/internal/domain/appointments"
)

// memoryLocker: mutex por id de cita. Alcanza para un solo proceso (dev,
// tests, modo in-memory); para más de una réplica va el locker de Redis.
type memoryLocker struct {
	mu    sync.Mutex
	byKey map[string]*sync.Mutex
}

func NewMemoryLocker() appointments.Locker {
	return &memoryLocker{
		byKey: make(map[string]*sync.Mutex),
	}
}

func (l *memoryLocker) WithAppointmentLock(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	m := l.forKey(id)
	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (l *memoryLocker) forKey(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.byKey[id]
	if !ok {
		m = &sync.Mutex{}
		l.byKey[id] = m
	}
	return m
}
