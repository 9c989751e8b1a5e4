// Package unread derives which offers have chat messages the viewer has not
// seen yet. Messages themselves live with the chat collaborator.
package unread

import (
	"context"
	"sort"
	"sync"
	"time"

	"mutari/pkg/types"

	"github.com/sirupsen/logrus"
)

// ReadMarker records the viewer's read position with the chat collaborator.
type ReadMarker interface {
	MarkRead(ctx context.Context, offerID string) error
}

type MarkerFunc func(ctx context.Context, offerID string) error

func (f MarkerFunc) MarkRead(ctx context.Context, offerID string) error { return f(ctx, offerID) }

type Tracker struct {
	role   types.Role
	chat   ReadMarker
	logger logrus.FieldLogger
	now    func() time.Time

	mu       sync.Mutex
	lastRead map[string]time.Time
	latest   map[string]time.Time

	// offer id to request id, limited to the loaded requests
	scope map[string]string
}

func New(role types.Role, chat ReadMarker, logger logrus.FieldLogger) *Tracker {
	return &Tracker{
		role:     role,
		chat:     chat,
		logger:   logger,
		now:      time.Now,
		lastRead: make(map[string]time.Time),
		latest:   make(map[string]time.Time),
		scope:    make(map[string]string),
	}
}

// Update replaces the set of offers unread state is computed over. Offers
// whose request is not in requests are out of scope.
func (t *Tracker) Update(requests []*types.MovingRequest, offers map[string][]*types.Offer) {
	loaded := make(map[string]bool, len(requests))
	for _, r := range requests {
		loaded[r.ID] = true
	}

	scope := make(map[string]string)
	for requestID, list := range offers {
		if !loaded[requestID] {
			continue
		}
		for _, o := range list {
			scope[o.ID] = requestID
		}
	}

	t.mu.Lock()
	t.scope = scope
	t.mu.Unlock()
}

// ObserveMessage records an incoming chat message. The viewer's own
// messages never make an offer unread.
func (t *Tracker) ObserveMessage(m *types.ChatMessage) {
	if m == nil || m.SenderRole == t.role {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if m.CreatedAt.After(t.latest[m.OfferID]) {
		t.latest[m.OfferID] = m.CreatedAt
	}
}

// SetReadMarker applies a read position loaded from the chat collaborator.
// Markers only move forward.
func (t *Tracker) SetReadMarker(offerID string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if at.After(t.lastRead[offerID]) {
		t.lastRead[offerID] = at
	}
}

// MarkRead clears the offer locally right away, then tells the chat
// collaborator. A collaborator failure is logged and returned; the local
// state stays read.
func (t *Tracker) MarkRead(ctx context.Context, offerID string) error {
	t.mu.Lock()
	at := t.now()
	if latest := t.latest[offerID]; latest.After(at) {
		at = latest
	}
	if at.After(t.lastRead[offerID]) {
		t.lastRead[offerID] = at
	}
	t.mu.Unlock()

	if t.chat == nil {
		return nil
	}

	if err := t.chat.MarkRead(ctx, offerID); err != nil {
		t.logger.WithError(err).WithField("offer_id", offerID).Warn("failed to store chat read position")
		return err
	}
	return nil
}

func (t *Tracker) IsUnread(offerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unreadLocked(offerID)
}

// Unread returns the sorted ids of unread offers.
func (t *Tracker) Unread() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0)
	for offerID := range t.scope {
		if t.unreadLocked(offerID) {
			out = append(out, offerID)
		}
	}
	sort.Strings(out)
	return out
}

// CountByRequest returns the number of unread offers per request id.
func (t *Tracker) CountByRequest() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int)
	for offerID, requestID := range t.scope {
		if t.unreadLocked(offerID) {
			out[requestID]++
		}
	}
	return out
}

func (t *Tracker) unreadLocked(offerID string) bool {
	if _, ok := t.scope[offerID]; !ok {
		return false
	}
	latest, ok := t.latest[offerID]
	return ok && latest.After(t.lastRead[offerID])
}
