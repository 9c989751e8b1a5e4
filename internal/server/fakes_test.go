package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"mutari/internal/notify"
	"mutari/pkg/types"
)

// memStore implements every store interface the service needs.
type memStore struct {
	mu sync.Mutex

	requests  map[string]*types.MovingRequest
	offers    map[string]*types.Offer
	customers map[string]*types.Customer
	companies map[string]*types.Company
	messages  []*types.ChatMessage
	reads     map[string]time.Time

	actionErr error
	seq       int
}

func newMemStore() *memStore {
	return &memStore{
		requests:  make(map[string]*types.MovingRequest),
		offers:    make(map[string]*types.Offer),
		customers: make(map[string]*types.Customer),
		companies: make(map[string]*types.Company),
		reads:     make(map[string]time.Time),
	}
}

func (m *memStore) id(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func (m *memStore) addRequest(r *types.MovingRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.Status == "" {
		r.Status = types.RequestStatusActive
	}
	m.requests[r.ID] = r
}

func (m *memStore) addOffer(o *types.Offer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.Status == "" {
		o.Status = types.OfferStatusPending
	}
	m.offers[o.ID] = o
}

func (m *memStore) Request(_ context.Context, requestID string) (*types.MovingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	c := *r
	return &c, nil
}

func (m *memStore) RequestsByCustomer(_ context.Context, customerID string, statuses []types.RequestStatus) ([]*types.MovingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := make(map[types.RequestStatus]bool)
	for _, s := range statuses {
		allowed[s] = true
	}

	out := make([]*types.MovingRequest, 0)
	for _, r := range m.requests {
		if r.CustomerID == customerID && (len(allowed) == 0 || allowed[r.Status]) {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateRequest(_ context.Context, r *types.MovingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id("req")
	code := fmt.Sprintf("MT-TEST%02d", m.seq)
	r.RequestCode = &code
	r.Status = types.RequestStatusActive
	c := *r
	m.requests[r.ID] = &c
	return nil
}

func (m *memStore) UpdateMedia(_ context.Context, requestID string, mediaURLs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return types.ErrRequestNotFound
	}
	r.MediaURLs = append([]string{}, mediaURLs...)
	return nil
}

func (m *memStore) UpdateStatus(_ context.Context, requestID string, to types.RequestStatus, _ string) (*types.MovingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	if !types.CanTransition(r.Status, to) {
		return nil, types.ErrInvalidTransition
	}
	if to == types.RequestStatusAccepted && !m.hasAcceptedOffer(requestID) {
		return nil, types.ErrInvalidTransition
	}
	before := *r
	r.Status = to
	return &before, nil
}

func (m *memStore) hasAcceptedOffer(requestID string) bool {
	for _, o := range m.offers {
		if o.RequestID == requestID && o.Status == types.OfferStatusAccepted {
			return true
		}
	}
	return false
}

func (m *memStore) Offer(_ context.Context, offerID string) (*types.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[offerID]
	if !ok {
		return nil, types.ErrOfferNotFound
	}
	c := *o
	return &c, nil
}

func (m *memStore) OffersByRequest(_ context.Context, requestID string) ([]*types.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Offer, 0)
	for _, o := range m.offers {
		if o.RequestID == requestID {
			c := *o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateOffer(_ context.Context, o *types.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[o.RequestID]
	if !ok {
		return types.ErrRequestNotFound
	}
	if r.Status != types.RequestStatusActive {
		return types.ErrRequestNotOpen
	}
	o.ID = m.id("off")
	o.Status = types.OfferStatusPending
	c := *o
	m.offers[o.ID] = &c
	return nil
}

func (m *memStore) AcceptOffer(_ context.Context, requestID, offerID, _ string) (*types.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.actionErr != nil {
		return nil, m.actionErr
	}

	o, ok := m.offers[offerID]
	if !ok || o.RequestID != requestID {
		return nil, types.ErrOfferNotFound
	}
	if o.Status != types.OfferStatusPending {
		return nil, types.ErrOfferNotPending
	}
	for _, other := range m.offers {
		if other.RequestID == requestID && other.Status == types.OfferStatusAccepted {
			return nil, types.ErrOfferAlreadyAccepted
		}
	}
	r := m.requests[requestID]
	if !types.CanTransition(r.Status, types.RequestStatusAccepted) {
		return nil, types.ErrInvalidTransition
	}

	o.Status = types.OfferStatusAccepted
	r.Status = types.RequestStatusAccepted
	c := *o
	return &c, nil
}

func (m *memStore) DeclineOffer(_ context.Context, requestID, offerID string) (*types.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.actionErr != nil {
		return nil, m.actionErr
	}

	o, ok := m.offers[offerID]
	if !ok || o.RequestID != requestID {
		return nil, types.ErrOfferNotFound
	}
	if o.Status != types.OfferStatusPending {
		return nil, types.ErrOfferNotPending
	}
	o.Status = types.OfferStatusDeclined
	c := *o
	return &c, nil
}

func (m *memStore) Company(_ context.Context, companyID string) (*types.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[companyID]
	if !ok {
		return nil, types.ErrCompanyNotFound
	}
	cc := *c
	return &cc, nil
}

func (m *memStore) Customer(_ context.Context, customerID string) (*types.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok {
		return nil, types.ErrCustomerNotFound
	}
	cc := *c
	return &cc, nil
}

func (m *memStore) GuestCustomer(_ context.Context, email, givenName, familyName, phone string) (*types.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.Email == email {
			cc := *c
			return &cc, nil
		}
	}
	c := &types.Customer{ID: m.id("cus"), Email: email, GivenName: &givenName, FamilyName: &familyName, Phone: &phone, IsGuest: true}
	m.customers[c.ID] = c
	cc := *c
	return &cc, nil
}

func (m *memStore) CustomerBySubject(_ context.Context, subject string) (*types.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.AuthSubject != nil && *c.AuthSubject == subject {
			cc := *c
			return &cc, nil
		}
	}
	return nil, types.ErrCustomerNotFound
}

func (m *memStore) EnsureCustomer(_ context.Context, identity *types.Identity, payload *types.EnsureCustomerPayload) (*types.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subject := identity.Subject
	for _, c := range m.customers {
		if c.AuthSubject != nil && *c.AuthSubject == subject {
			cc := *c
			return &cc, nil
		}
	}
	for _, c := range m.customers {
		if c.Email == identity.Email {
			if !c.IsGuest {
				return nil, types.ErrEmailTaken
			}
			c.IsGuest = false
			c.AuthSubject = &subject
			cc := *c
			return &cc, nil
		}
	}
	c := &types.Customer{ID: subject, Email: identity.Email, GivenName: &payload.GivenName, AuthSubject: &subject}
	m.customers[c.ID] = c
	cc := *c
	return &cc, nil
}

func (m *memStore) CreateMessage(_ context.Context, msg *types.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.id("msg")
	msg.CreatedAt = time.Now()
	c := *msg
	m.messages = append(m.messages, &c)
	return nil
}

func (m *memStore) MarkRead(_ context.Context, offerID string, role types.Role, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := offerID + "/" + string(role)
	if at.After(m.reads[key]) {
		m.reads[key] = at
	}
	return nil
}

func (m *memStore) readAt(offerID string, role types.Role) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[offerID+"/"+string(role)]
}

func (m *memStore) LatestIncoming(_ context.Context, offerIDs []string, role types.Role) ([]*types.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool)
	for _, id := range offerIDs {
		want[id] = true
	}
	latest := make(map[string]*types.ChatMessage)
	for _, msg := range m.messages {
		if !want[msg.OfferID] || msg.SenderRole == role {
			continue
		}
		if cur, ok := latest[msg.OfferID]; !ok || msg.CreatedAt.After(cur.CreatedAt) {
			latest[msg.OfferID] = msg
		}
	}
	out := make([]*types.ChatMessage, 0, len(latest))
	for _, msg := range latest {
		c := *msg
		out = append(out, &c)
	}
	return out, nil
}

func (m *memStore) ReadMarkers(_ context.Context, offerIDs []string, role types.Role) ([]*types.ReadMarker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.ReadMarker, 0)
	for _, id := range offerIDs {
		if at, ok := m.reads[id+"/"+string(role)]; ok {
			out = append(out, &types.ReadMarker{OfferID: id, Role: role, LastReadAt: at})
		}
	}
	return out, nil
}

type fakeVerifier map[string]*types.Identity

func (f fakeVerifier) Verify(_ context.Context, token string) (*types.Identity, error) {
	identity, ok := f[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return identity, nil
}

type sentMail struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (s *sentMail) Send(_ context.Context, msg notify.Message) (notify.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return notify.Result{Success: true, ID: fmt.Sprintf("mail-%d", len(s.msgs))}, nil
}

func (s *sentMail) all() []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Message(nil), s.msgs...)
}

type fakeRemover struct {
	mu      sync.Mutex
	removed []string
}

func (f *fakeRemover) Remove(_ context.Context, mediaURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, mediaURL)
	return nil
}
