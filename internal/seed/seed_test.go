package seed

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"mutari/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSeedStore struct {
	companies map[string]*types.Company
	customers map[string]*types.Customer
	requests  map[string]*types.MovingRequest
	offers    map[string]*types.Offer
	messages  []*types.ChatMessage
	seq       int
}

func newMemSeedStore() *memSeedStore {
	return &memSeedStore{
		companies: map[string]*types.Company{},
		customers: map[string]*types.Customer{},
		requests:  map[string]*types.MovingRequest{},
		offers:    map[string]*types.Offer{},
	}
}

func (m *memSeedStore) id(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func (m *memSeedStore) UpsertCompany(_ context.Context, company *types.Company) error {
	c := *company
	m.companies[c.ID] = &c
	return nil
}

func (m *memSeedStore) EnsureCustomer(_ context.Context, identity *types.Identity, payload *types.EnsureCustomerPayload) (*types.Customer, error) {
	if c, ok := m.customers[identity.Subject]; ok {
		return c, nil
	}
	c := &types.Customer{ID: identity.Subject, Email: identity.Email, GivenName: &payload.GivenName}
	m.customers[c.ID] = c
	return c, nil
}

func (m *memSeedStore) CreateRequest(_ context.Context, request *types.MovingRequest) error {
	request.ID = m.id("req")
	request.Status = types.RequestStatusActive
	m.requests[request.ID] = request
	return nil
}

func (m *memSeedStore) UpdateStatus(_ context.Context, requestID string, to types.RequestStatus, _ string) (*types.MovingRequest, error) {
	r := m.requests[requestID]
	if !types.CanTransition(r.Status, to) {
		return nil, types.ErrInvalidTransition
	}
	r.Status = to
	return r, nil
}

func (m *memSeedStore) CreateOffer(_ context.Context, offer *types.Offer) error {
	if m.requests[offer.RequestID].Status != types.RequestStatusActive {
		return types.ErrRequestNotOpen
	}
	for _, o := range m.offers {
		if o.RequestID == offer.RequestID && o.CompanyID == offer.CompanyID {
			return types.ErrOfferExists
		}
	}
	offer.ID = m.id("off")
	offer.Status = types.OfferStatusPending
	m.offers[offer.ID] = offer
	return nil
}

func (m *memSeedStore) AcceptOffer(_ context.Context, requestID, offerID, _ string) (*types.Offer, error) {
	r := m.requests[requestID]
	if r.Status != types.RequestStatusActive {
		return nil, types.ErrInvalidTransition
	}
	o := m.offers[offerID]
	o.Status = types.OfferStatusAccepted
	r.Status = types.RequestStatusAccepted
	return o, nil
}

func (m *memSeedStore) CreateMessage(_ context.Context, message *types.ChatMessage) error {
	message.ID = m.id("msg")
	m.messages = append(m.messages, message)
	return nil
}

func TestSeedCompaniesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := newMemSeedStore()

	require.NoError(t, SeedCompanies(ctx, mem))
	require.NoError(t, SeedCompanies(ctx, mem))

	assert.Len(t, mem.companies, len(Companies))
	for _, c := range Companies {
		assert.Contains(t, mem.companies, c.ID)
	}
}

func TestSeedCustomers(t *testing.T) {
	mem := newMemSeedStore()

	require.NoError(t, SeedCustomers(context.Background(), mem))

	assert.Len(t, mem.customers, len(fakeCustomers))
}

func TestSeedFakeRequests(t *testing.T) {
	mem := newMemSeedStore()
	seeder := &RequestSeeder{
		Requests: mem,
		Offers:   mem,
		Chat:     mem,
		Rand:     rand.New(rand.NewSource(42)),
		Now:      func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	}

	require.NoError(t, seeder.SeedFakeRequests(context.Background(), 40))
	require.Len(t, mem.requests, 40)

	acceptedPerRequest := map[string]int{}
	for _, o := range mem.offers {
		if o.Status == types.OfferStatusAccepted {
			acceptedPerRequest[o.RequestID]++
		}
	}

	for _, r := range mem.requests {
		assert.Contains(t, r.Details, seedMarker)
		assert.NotEmpty(t, r.FromCity)
		assert.NotEmpty(t, r.ToCity)
		assert.Contains(t, r.Services, types.ServiceMoving)
		assert.True(t, r.MoveDateMode.Valid())
		assert.LessOrEqual(t, acceptedPerRequest[r.ID], 1)
		if r.Status == types.RequestStatusAccepted {
			assert.Equal(t, 1, acceptedPerRequest[r.ID])
		}
	}

	for _, msg := range mem.messages {
		assert.Equal(t, types.OfferStatusAccepted, mem.offers[msg.OfferID].Status)
	}
}

func TestSeedFakeRequestsSkipsZeroCount(t *testing.T) {
	mem := newMemSeedStore()
	seeder := &RequestSeeder{Requests: mem, Offers: mem}

	require.NoError(t, seeder.SeedFakeRequests(context.Background(), 0))
	assert.Empty(t, mem.requests)
}

func TestPickWeightedStatusCoversAll(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seen := map[types.RequestStatus]bool{}
	for i := 0; i < 1000; i++ {
		seen[pickWeightedStatus(rng)] = true
	}

	for _, ws := range weightedStatuses {
		assert.True(t, seen[ws.Status], ws.Status)
	}
}
