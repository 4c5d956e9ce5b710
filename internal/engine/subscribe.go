package engine

import (
	"slices"
	"sync"

	"github.com/roach88/featureplan/internal/model"
)

// Change describes one published state transition.
type Change struct {
	// Revision is the revision of the state the change produced.
	Revision int64

	// Tables lists the tables whose contents changed.
	Tables []model.Table
}

// Touches reports whether the change affected table t.
func (c Change) Touches(t model.Table) bool {
	return slices.Contains(c.Tables, t)
}

type subscription struct {
	id     uint64
	fn     func(Change)
	tables []model.Table
}

func (s subscription) wants(c Change) bool {
	if len(s.tables) == 0 {
		return true
	}
	for _, t := range s.tables {
		if c.Touches(t) {
			return true
		}
	}
	return false
}

// subscribers is the listener registry. Callbacks are invoked in
// subscription order.
type subscribers struct {
	mu   sync.Mutex
	next uint64
	list []subscription
}

// Subscribe registers fn to be called after every state change that touches
// one of tables. With no tables, fn sees every change.
//
// fn runs on the goroutine that performed the mutation, after the new state
// is visible and after the engine lock is released. It may call selectors
// and mutations.
//
// The returned function removes the subscription; calling it more than once
// is harmless.
func (e *Engine) Subscribe(fn func(Change), tables ...model.Table) (unsubscribe func()) {
	return e.subs.add(fn, slices.Clone(tables))
}

func (r *subscribers) add(fn func(Change), tables []model.Table) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	id := r.next
	r.list = append(r.list, subscription{id: id, fn: fn, tables: tables})

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *subscribers) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = slices.DeleteFunc(slices.Clone(r.list), func(s subscription) bool {
		return s.id == id
	})
}

func (r *subscribers) notify(c Change) {
	r.mu.Lock()
	list := r.list
	r.mu.Unlock()

	for _, s := range list {
		if s.wants(c) {
			s.fn(c)
		}
	}
}
