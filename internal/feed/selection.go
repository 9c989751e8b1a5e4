package feed

import (
	"mutari/pkg/types"
)

type selection struct {
	id     string
	filter types.RequestStatus
	urlID  string

	// auto is set while the selection is the computed default, which may
	// move as offers arrive.
	auto bool
}

// resolve keeps the selection pointing at a visible request.
func (s *selection) resolve(visible []*types.MovingRequest, offers map[string][]*types.Offer) {
	if s.urlID != "" && len(visible) > 0 {
		id := s.urlID
		s.urlID = ""
		if contains(visible, id) {
			s.id, s.auto = id, false
			return
		}
	}

	if s.id != "" && !s.auto && contains(visible, s.id) {
		return
	}

	s.id, s.auto = defaultSelection(visible, offers), true
}

// defaultSelection is the first request with an offer, else the first request.
func defaultSelection(visible []*types.MovingRequest, offers map[string][]*types.Offer) string {
	for _, r := range visible {
		if len(offers[r.ID]) > 0 {
			return r.ID
		}
	}
	if len(visible) > 0 {
		return visible[0].ID
	}
	return ""
}

func contains(list []*types.MovingRequest, id string) bool {
	for _, r := range list {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Select makes requestID the selected request. Returns false when the
// request is not visible.
func (f *Feed) Select(requestID string) bool {
	f.mu.Lock()
	if f.stopped || !contains(f.visibleLocked(), requestID) {
		f.mu.Unlock()
		return false
	}
	f.selection.id, f.selection.auto = requestID, false
	view, version := f.snapshotLocked()
	f.mu.Unlock()

	f.deliver(view, version)
	return true
}

// SetFilter limits the view to one status; the empty status shows all. A
// selection hidden by the filter moves to the first visible request.
func (f *Feed) SetFilter(status types.RequestStatus) {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}

	f.selection.filter = status
	visible := f.visibleLocked()
	if !contains(visible, f.selection.id) {
		f.selection.id, f.selection.auto = "", false
		if len(visible) > 0 {
			f.selection.id = visible[0].ID
		}
	}
	view, version := f.snapshotLocked()
	f.mu.Unlock()

	f.deliver(view, version)
}
