package identity

import (
	"sync"

	"leadboard-go/internal/models"
)

// listeners holds the current principal and fans changes out to subscribers.
// Callbacks run outside the lock, in registration order.
type listeners struct {
	mu      sync.Mutex
	nextID  int
	fns     map[int]func(*models.Principal)
	order   []int
	current *models.Principal
}

func (l *listeners) subscribe(fn func(*models.Principal)) func() {
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[int]func(*models.Principal))
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	l.order = append(l.order, id)
	current := clonePrincipal(l.current)
	l.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.fns, id)
			for i, v := range l.order {
				if v == id {
					l.order = append(l.order[:i], l.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (l *listeners) get() *models.Principal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return clonePrincipal(l.current)
}

// set replaces the current principal and notifies every subscriber.
func (l *listeners) set(p *models.Principal) {
	l.mu.Lock()
	l.current = clonePrincipal(p)
	fns := make([]func(*models.Principal), 0, len(l.order))
	for _, id := range l.order {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(clonePrincipal(p))
	}
}

func clonePrincipal(p *models.Principal) *models.Principal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
