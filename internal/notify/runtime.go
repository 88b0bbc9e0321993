package notify

import (
	"sync"
	"sync/atomic"
	"time"
)

// Runtime holds process-wide operator state: the admin-prioritize toggle
// and per-action cooldown timestamps. It is passed by reference to the
// dispatcher and the bot handlers; every read-modify-write is atomic or
// mutex-guarded.
type Runtime struct {
	adminPrioritize atomic.Bool

	mu        sync.Mutex
	cooldowns map[string]time.Time
}

// NewRuntime builds runtime state with prioritization off.
func NewRuntime() *Runtime {
	return &Runtime{cooldowns: make(map[string]time.Time)}
}

// AdminPrioritize reports whether restock notifications give the admin a
// head start.
func (r *Runtime) AdminPrioritize() bool {
	return r.adminPrioritize.Load()
}

// SetAdminPrioritize sets the toggle.
func (r *Runtime) SetAdminPrioritize(enabled bool) {
	r.adminPrioritize.Store(enabled)
}

// ToggleAdminPrioritize flips the toggle and returns the new value.
func (r *Runtime) ToggleAdminPrioritize() bool {
	for {
		current := r.adminPrioritize.Load()
		if r.adminPrioritize.CompareAndSwap(current, !current) {
			return !current
		}
	}
}

// AllowAction reports whether the named action is outside its cooldown
// window and, if so, stamps it as used at now.
func (r *Runtime) AllowAction(action string, window time.Duration, now time.Time) bool {
	if window <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	last, seen := r.cooldowns[action]
	if seen && now.Sub(last) < window {
		return false
	}
	r.cooldowns[action] = now
	return true
}
