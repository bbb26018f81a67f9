package tenant

import (
	"strings"
	"sync"
)

// Unset is returned when a path carries no tenant segment.
const Unset = ""

type ChangeFunc func(previous, next string)

// Resolver maps navigation paths to tenant identifiers and notifies
// subscribers when navigation lands on a different tenant.
type Resolver struct {
	mu        sync.RWMutex
	current   string
	listeners []ChangeFunc
}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the first non-empty path segment.
func Resolve(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, segment := range strings.Split(path, "/") {
		if segment = strings.TrimSpace(segment); segment != "" {
			return segment
		}
	}
	return Unset
}

func (r *Resolver) Resolve(path string) string {
	return Resolve(path)
}

func (r *Resolver) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Navigate records a navigation event and returns the tenant it resolved to.
// Listeners run after the lock is released, in registration order.
func (r *Resolver) Navigate(path string) string {
	next := Resolve(path)

	r.mu.Lock()
	previous := r.current
	if previous == next {
		r.mu.Unlock()
		return next
	}
	r.current = next
	listeners := make([]ChangeFunc, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(previous, next)
	}
	return next
}

func (r *Resolver) OnChange(fn ChangeFunc) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}
