package attach

import "sync"

// Registry records windows claimed by live attachments, so concurrent game
// windows are never attached twice. One registry is shared per process.
type Registry struct {
	mu      sync.Mutex
	windows map[uintptr]struct{}
}

func NewRegistry() *Registry {
	return &Registry{windows: map[uintptr]struct{}{}}
}

// Claim reports whether hwnd was free and is now held by the caller.
func (r *Registry) Claim(hwnd uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.windows[hwnd]; ok {
		return false
	}
	r.windows[hwnd] = struct{}{}
	return true
}

func (r *Registry) Release(hwnd uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.windows, hwnd)
}

func (r *Registry) Held(hwnd uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.windows[hwnd]
	return ok
}

// Retain drops entries whose window no longer exists.
func (r *Registry) Retain(live map[uintptr]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h := range r.windows {
		if _, ok := live[h]; !ok {
			delete(r.windows, h)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}
