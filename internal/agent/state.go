package agent

import (
	"sync"
	"time"

	"github.com/joshsymonds/inboxpilot/internal/category"
)

// State is the control-surface view of the loop. The zero value is a
// stopped agent that has never polled.
type State struct {
	Running          bool                      `json:"running"`
	LastPollAt       time.Time                 `json:"last_poll_at"`
	CountsByCategory map[category.Category]int `json:"counts_by_category"`
	LastError        string                    `json:"last_error,omitempty"`
}

// state is the internal mutable copy, shared between the loop and the
// control surfaces, guarded by its mutex.
type state struct {
	mu sync.Mutex
	s  State
}

// start flips the running flag on; reports whether this call changed it.
func (st *state) start() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s.Running {
		return false
	}
	st.s.Running = true
	return true
}

// stop flips the running flag off; reports whether this call changed it.
func (st *state) stop() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.s.Running {
		return false
	}
	st.s.Running = false
	return true
}

func (st *state) running() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.Running
}

// snapshot deep-copies the state so readers never alias the live map.
func (st *state) snapshot() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := st.s
	out.CountsByCategory = make(map[category.Category]int, len(st.s.CountsByCategory))
	for c, n := range st.s.CountsByCategory {
		out.CountsByCategory[c] = n
	}
	return out
}

func (st *state) markPoll(at time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.LastPollAt = at
	st.s.LastError = ""
}

func (st *state) markError(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.LastError = err.Error()
}

func (st *state) count(c category.Category) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s.CountsByCategory == nil {
		st.s.CountsByCategory = map[category.Category]int{}
	}
	st.s.CountsByCategory[c]++
}
