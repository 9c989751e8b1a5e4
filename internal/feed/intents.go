package feed

import (
	"mutari/pkg/types"
)

// intents is the optimistic overlay drawn on top of authoritative request
// snapshots. An intent disappears once a snapshot reflects it or when it
// is reverted.
type intents struct {
	next  int
	items map[int]intent
}

type intent struct {
	requestID   string
	removeMedia string
}

func (in *intents) add(it intent) int {
	in.next++
	in.items[in.next] = it
	return in.next
}

func (in *intents) reconcile(requests []*types.MovingRequest) {
	byID := make(map[string]*types.MovingRequest, len(requests))
	for _, r := range requests {
		byID[r.ID] = r
	}

	for id, it := range in.items {
		r, ok := byID[it.requestID]
		if !ok || !hasMedia(r, it.removeMedia) {
			delete(in.items, id)
		}
	}
}

// apply returns r with pending intents applied, or r itself when none apply.
func (in *intents) apply(r *types.MovingRequest) *types.MovingRequest {
	var removed map[string]bool
	for _, it := range in.items {
		if it.requestID == r.ID {
			if removed == nil {
				removed = make(map[string]bool)
			}
			removed[it.removeMedia] = true
		}
	}
	if removed == nil {
		return r
	}

	c := *r
	c.MediaURLs = make([]string, 0, len(r.MediaURLs))
	for _, u := range r.MediaURLs {
		if !removed[u] {
			c.MediaURLs = append(c.MediaURLs, u)
		}
	}
	return &c
}

func hasMedia(r *types.MovingRequest, url string) bool {
	for _, u := range r.MediaURLs {
		if u == url {
			return true
		}
	}
	return false
}

// RemoveMediaIntent hides url from the request until a snapshot without it
// arrives. The returned revert drops the intent, showing the last
// authoritative state again.
func (f *Feed) RemoveMediaIntent(requestID, url string) (revert func()) {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return func() {}
	}
	id := f.intents.add(intent{requestID: requestID, removeMedia: url})
	view, version := f.snapshotLocked()
	f.mu.Unlock()

	f.deliver(view, version)

	return func() {
		f.mu.Lock()
		if _, ok := f.intents.items[id]; !ok {
			f.mu.Unlock()
			return
		}
		delete(f.intents.items, id)
		f.mu.Unlock()
		f.emit()
	}
}

// PendingIntents counts intents not yet confirmed or reverted.
func (f *Feed) PendingIntents() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.intents.items)
}
