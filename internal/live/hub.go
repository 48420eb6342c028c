// Package live delivers full-collection snapshots to subscribers whenever a
// user's collection changes. Every write pushes the complete current state,
// never a delta, so consumers can replace their view wholesale.
package live

import (
	"context"
	"sync"

	"gastos/internal/core"
	"gastos/internal/store"
)

// Snapshot is one delivery on a subscription channel. Records holds the full
// collection ordered newest first. When the underlying load fails Err is set,
// Records is nil and the stream keeps going; a later change retries the load.
type Snapshot struct {
	UID        string
	Collection string
	Seq        uint64
	Records    []core.Record
	Err        error
}

// Subscription is a live feed over one user's collection. C is closed after
// Cancel returns or the subscribe context ends.
type Subscription struct {
	C      <-chan Snapshot
	cancel func()
}

// Cancel detaches the subscription. Safe to call more than once.
func (s *Subscription) Cancel() { s.cancel() }

type subscriber struct {
	kick chan struct{}
	done chan struct{}
}

// Hub fans out change notifications to snapshot subscriptions. Each
// subscription runs its own goroutine that reloads the collection from the
// store on every kick, so a slow consumer only delays its own feed.
type Hub struct {
	records store.RecordStore

	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func NewHub(records store.RecordStore) *Hub {
	return &Hub{
		records: records,
		subs:    make(map[string]map[*subscriber]struct{}),
	}
}

func scopeKey(uid, collection string) string {
	return uid + "/" + collection
}

// Subscribe attaches a live feed for uid's collection. The first snapshot is
// produced immediately without waiting for a change. Delivery is coalescing:
// bursts of writes while a snapshot is in flight collapse into one reload, so
// every delivered snapshot reflects at least the latest write.
func (h *Hub) Subscribe(ctx context.Context, uid, collection string) *Subscription {
	sub := &subscriber{
		kick: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	sub.kick <- struct{}{} // initial snapshot

	key := scopeKey(uid, collection)
	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*subscriber]struct{})
	}
	h.subs[key][sub] = struct{}{}
	h.mu.Unlock()

	out := make(chan Snapshot)
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[key], sub)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			h.mu.Unlock()
			close(sub.done)
		})
	}

	go h.run(ctx, uid, collection, sub, out, cancel)

	return &Subscription{C: out, cancel: cancel}
}

func (h *Hub) run(ctx context.Context, uid, collection string, sub *subscriber, out chan<- Snapshot, cancel func()) {
	defer close(out)
	defer cancel()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case <-sub.kick:
		}

		records, err := h.records.ListRecords(ctx, uid, collection)
		seq++
		snap := Snapshot{UID: uid, Collection: collection, Seq: seq, Err: err}
		if err == nil {
			snap.Records = records
		}

		select {
		case out <- snap:
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		}
	}
}

// Notify wakes every subscription on uid's collection. Non-blocking: a
// subscriber with a kick already pending is left as is.
func (h *Hub) Notify(uid, collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[scopeKey(uid, collection)] {
		select {
		case sub.kick <- struct{}{}:
		default:
		}
	}
}
