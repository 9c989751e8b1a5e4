package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mutari/internal/live"
	"mutari/internal/notify"
	"mutari/pkg/types"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	customerToken = "tok-customer"
	strangerToken = "tok-stranger"
	companyToken  = "tok-company"
)

type harness struct {
	svc     *Service
	store   *memStore
	mail    *sentMail
	remover *fakeRemover
	live    *live.Source
}

func newHarness(t *testing.T, mutate ...func(*types.Config)) *harness {
	t.Helper()

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	config := &types.Config{
		Environment:        "development",
		PublicURL:          "https://mutari.test",
		AllowedOrigins:     []string{"https://mutari.test"},
		DraftBackend:       "cookie",
		DraftCookieName:    "mutari_draft",
		DraftMaxAgeSec:     3600,
		ReadTimeoutSec:     5,
		WriteTimeoutSec:    5,
		GuestRatePerMinute: 0,
	}
	for _, m := range mutate {
		m(config)
	}

	st := newMemStore()
	st.companies["co1"] = &types.Company{ID: "co1", Name: "Acme Mutări", Email: "office@acme.test", Rating: 4.5, ReviewCount: 12}

	mail := new(sentMail)
	remover := new(fakeRemover)
	source := live.NewSource(st, st, logger)

	svc, err := New(config, logger, Deps{
		Requests:  st,
		Offers:    st,
		Companies: st,
		Customers: st,
		Chat:      st,
		Live:      source,
		Verifier: fakeVerifier{
			customerToken: {Subject: "u1", UserID: "u1", Email: "ion@example.com", Role: types.RoleCustomer},
			strangerToken: {Subject: "u2", UserID: "u2", Email: "ana@example.com", Role: types.RoleCustomer},
			companyToken:  {Subject: "cu1", UserID: "cu1", Email: "office@acme.test", Role: types.RoleCompany, CompanyID: "co1"},
		},
		Media:  remover,
		Mailer: notify.NewDispatcher(mail, "", logger),
	})
	require.NoError(t, err)

	return &harness{svc: svc, store: st, mail: mail, remover: remover, live: source}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.svc.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env types.Envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorBody {
	t.Helper()
	var env types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error
}

func guestPayload() *types.GuestRequestPayload {
	return &types.GuestRequestPayload{
		FromCounty:       "Cluj",
		FromCity:         "Cluj-Napoca",
		FromRooms:        "2",
		ToCounty:         "București",
		ToCity:           "București",
		ToRooms:          "3",
		MoveDateMode:     types.ScheduleModeNone,
		ContactFirstName: "Ion",
		ContactLastName:  "Popescu",
		Phone:            "0712345678",
		Email:            "ion@example.com",
		AcceptedTerms:    true,
	}
}

func (h *harness) seedRequest(t *testing.T) (*types.MovingRequest, *types.Offer) {
	t.Helper()

	code := "MT-ABC234"
	r := &types.MovingRequest{
		ID:               "r1",
		CustomerID:       "u1",
		RequestCode:      &code,
		FromCity:         "Cluj-Napoca",
		ToCity:           "București",
		ContactFirstName: "Ion",
		ContactLastName:  "Popescu",
		Phone:            "0712345678",
		Email:            "ion@example.com",
		MediaURLs:        []string{"gs://bucket/a.jpg", "gs://bucket/b.jpg"},
	}
	h.store.addRequest(r)

	o := &types.Offer{ID: "o1", RequestID: "r1", CompanyID: "co1", CompanyName: "Acme Mutări", CompanyEmail: "office@acme.test", Price: 1200}
	h.store.addOffer(o)
	return r, o
}

func TestCreateGuestHappyPath(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/requests/createGuest", "", guestPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	result := decodeData[types.CreateGuestResult](t, rec)
	assert.NotEmpty(t, result.RequestCode)
	assert.Empty(t, result.RequestID, "guests only learn the code")

	require.Len(t, h.store.requests, 1)
	for _, r := range h.store.requests {
		assert.Equal(t, types.RequestStatusActive, r.Status)
		assert.Equal(t, "Cluj-Napoca", r.FromCity)
		assert.Equal(t, "0712345678", r.Phone)
		assert.Equal(t, types.MediaNone, r.MediaUpload)

		customer := h.store.customers[r.CustomerID]
		require.NotNil(t, customer)
		assert.True(t, customer.IsGuest)
	}

	assert.Eventually(t, func() bool {
		msgs := h.mail.all()
		return len(msgs) == 1 && msgs[0].To == "ion@example.com"
	}, time.Second, 10*time.Millisecond)
}

func TestCreateGuestSignedInUsesCaller(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/requests/createGuest", customerToken, guestPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	result := decodeData[types.CreateGuestResult](t, rec)
	require.NotEmpty(t, result.RequestID)
	assert.Equal(t, "u1", h.store.requests[result.RequestID].CustomerID)
}

func TestCreateGuestRejectsCompanies(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/requests/createGuest", companyToken, guestPayload())
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, h.store.requests)
}

func TestCreateGuestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *types.GuestRequestPayload)
		field  string
		msg    string
	}{
		{
			name:   "phone pattern",
			mutate: func(p *types.GuestRequestPayload) { p.Phone = "123" },
			field:  "phone",
			msg:    "Format telefon invalid.",
		},
		{
			name:   "terms",
			mutate: func(p *types.GuestRequestPayload) { p.AcceptedTerms = false },
			field:  "acceptedTerms",
			msg:    "Trebuie să accepți termenii și condițiile.",
		},
		{
			name: "exact date missing",
			mutate: func(p *types.GuestRequestPayload) {
				p.MoveDateMode = types.ScheduleModeExact
			},
			field: "moveDate",
			msg:   "Alege data mutării.",
		},
		{
			name: "range reversed",
			mutate: func(p *types.GuestRequestPayload) {
				p.MoveDateMode = types.ScheduleModeRange
				p.MoveDateStart = "2026-06-10"
				p.MoveDateEnd = "2026-06-01"
			},
			field: "moveDateEnd",
			msg:   "Data de final trebuie să fie după data de început.",
		},
		{
			name:   "unknown service",
			mutate: func(p *types.GuestRequestPayload) { p.Services = []types.Service{"teleport"} },
			field:  "services",
			msg:    "Serviciu invalid.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			p := guestPayload()
			tt.mutate(p)

			rec := h.do(t, http.MethodPost, "/api/requests/createGuest", "", p)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			body := decodeError(t, rec)
			assert.Equal(t, "validation", body.Code)
			assert.Equal(t, tt.msg, body.Fields[tt.field])
			assert.Empty(t, h.store.requests)
		})
	}
}

func TestCreateGuestRateLimited(t *testing.T) {
	h := newHarness(t, func(c *types.Config) { c.GuestRatePerMinute = 1 })

	first := h.do(t, http.MethodPost, "/api/requests/createGuest", "", guestPayload())
	require.Equal(t, http.StatusCreated, first.Code)

	second := h.do(t, http.MethodPost, "/api/requests/createGuest", "", guestPayload())
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// signed-in callers are not throttled
	third := h.do(t, http.MethodPost, "/api/requests/createGuest", customerToken, guestPayload())
	assert.Equal(t, http.StatusCreated, third.Code)
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/requests/updateStatus", "", &types.UpdateStatusPayload{RequestID: "r1", Status: types.RequestStatusPaused})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/requests/updateStatus", "garbage", &types.UpdateStatusPayload{RequestID: "r1", Status: types.RequestStatusPaused})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// optional auth still rejects a bad token
	rec = h.do(t, http.MethodPost, "/api/requests/createGuest", "garbage", guestPayload())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	h := newHarness(t)
	h.seedRequest(t)

	rec := h.do(t, http.MethodPost, "/api/requests/updateStatus", customerToken, &types.UpdateStatusPayload{RequestID: "r1", Status: types.RequestStatusPaused})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, types.RequestStatusPaused, h.store.requests["r1"].Status)

	rec = h.do(t, http.MethodPost, "/api/requests/updateStatus", customerToken, &types.UpdateStatusPayload{RequestID: "r1", Status: types.RequestStatusAccepted})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, rec).Code)

	rec = h.do(t, http.MethodPost, "/api/requests/updateStatus", strangerToken, &types.UpdateStatusPayload{RequestID: "r1", Status: types.RequestStatusActive})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, types.RequestStatusPaused, h.store.requests["r1"].Status)

	rec = h.do(t, http.MethodPost, "/api/requests/updateStatus", customerToken, map[string]string{"requestId": "r1", "status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusAcceptedNeedsAcceptedOffer(t *testing.T) {
	h := newHarness(t)
	_, offer := h.seedRequest(t)

	set := func(status types.RequestStatus) *httptest.ResponseRecorder {
		return h.do(t, http.MethodPost, "/api/requests/updateStatus", customerToken, &types.UpdateStatusPayload{RequestID: "r1", Status: status})
	}

	rec := set(types.RequestStatusAccepted)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, types.RequestStatusActive, h.store.requests["r1"].Status)

	// the offer can still be accepted afterwards
	rec = h.do(t, http.MethodPost, "/api/offers/accept", customerToken, &types.OfferActionPayload{RequestID: "r1", OfferID: offer.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Equal(t, http.StatusOK, set(types.RequestStatusClosed).Code)
	require.Equal(t, http.StatusOK, set(types.RequestStatusActive).Code)
	rec = set(types.RequestStatusAccepted)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, types.RequestStatusAccepted, h.store.requests["r1"].Status)
}

func TestUpdateMediaRemovesDroppedObjects(t *testing.T) {
	h := newHarness(t)
	h.seedRequest(t)

	rec := h.do(t, http.MethodPost, "/api/requests/updateMedia", customerToken, &types.UpdateMediaPayload{
		RequestID: "r1",
		MediaURLs: []string{"gs://bucket/b.jpg"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, []string{"gs://bucket/b.jpg"}, h.store.requests["r1"].MediaURLs)
	assert.Equal(t, []string{"gs://bucket/a.jpg"}, h.remover.removed)
}

func TestAcceptOffer(t *testing.T) {
	h := newHarness(t)
	h.seedRequest(t)

	rec := h.do(t, http.MethodPost, "/api/offers/accept", customerToken, &types.OfferActionPayload{RequestID: "r1", OfferID: "o1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	offer := decodeData[types.Offer](t, rec)
	assert.Equal(t, types.OfferStatusAccepted, offer.Status)
	assert.Equal(t, types.RequestStatusAccepted, h.store.requests["r1"].Status)

	assert.Eventually(t, func() bool {
		msgs := h.mail.all()
		return len(msgs) == 1 && msgs[0].To == "office@acme.test" && strings.Contains(msgs[0].HTML, "0712345678")
	}, time.Second, 10*time.Millisecond)

	h.store.addOffer(&types.Offer{ID: "o2", RequestID: "r1", CompanyID: "co2"})
	rec = h.do(t, http.MethodPost, "/api/offers/accept", customerToken, &types.OfferActionPayload{RequestID: "r1", OfferID: "o2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_accepted", decodeError(t, rec).Code)
}

func TestAcceptIsExclusiveAcrossGeneratedOfferSets(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for trial := 0; trial < 25; trial++ {
		h := newHarness(t)
		h.store.addRequest(&types.MovingRequest{ID: "r1", CustomerID: "u1", Email: "ion@example.com"})

		n := 1 + rng.Intn(6)
		pending := 0
		for i := 0; i < n; i++ {
			status := types.OfferStatusPending
			if rng.Intn(3) == 0 {
				status = types.OfferStatusDeclined
			} else {
				pending++
			}
			h.store.addOffer(&types.Offer{ID: fmt.Sprintf("o%d", i), RequestID: "r1", CompanyID: "co1", Status: status})
		}

		bodies := make([][]byte, n)
		for i := range bodies {
			body, err := json.Marshal(&types.OfferActionPayload{RequestID: "r1", OfferID: fmt.Sprintf("o%d", i)})
			require.NoError(t, err)
			bodies[i] = body
		}

		codes := make([]int, n)
		var wg sync.WaitGroup
		for i := range bodies {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodPost, "/api/offers/accept", bytes.NewReader(bodies[i]))
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("Authorization", "Bearer "+customerToken)
				rec := httptest.NewRecorder()
				h.svc.Handler().ServeHTTP(rec, req)
				codes[i] = rec.Code
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, code := range codes {
			if code == http.StatusOK {
				ok++
			}
		}

		offers, err := h.store.OffersByRequest(context.Background(), "r1")
		require.NoError(t, err)

		if pending == 0 {
			assert.Zero(t, ok, "trial %d", trial)
			assert.Zero(t, types.AcceptedCount(offers), "trial %d", trial)
			continue
		}
		assert.Equal(t, 1, ok, "trial %d: %v", trial, codes)
		assert.Equal(t, 1, types.AcceptedCount(offers), "trial %d", trial)
	}
}

func TestOfferActionsUnavailable(t *testing.T) {
	h := newHarness(t)
	h.seedRequest(t)
	h.store.actionErr = types.ErrUnavailable

	for _, path := range []string{"/api/offers/accept", "/api/offers/decline"} {
		rec := h.do(t, http.MethodPost, path, customerToken, &types.OfferActionPayload{RequestID: "r1", OfferID: "o1"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Equal(t, "unavailable", decodeError(t, rec).Code)
	}
}

func TestOfferActionsCheckOwnership(t *testing.T) {
	h := newHarness(t)
	h.seedRequest(t)

	rec := h.do(t, http.MethodPost, "/api/offers/decline", strangerToken, &types.OfferActionPayload{RequestID: "r1", OfferID: "o1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, types.OfferStatusPending, h.store.offers["o1"].Status)

	rec = h.do(t, http.MethodPost, "/api/offers/decline", customerToken, &types.OfferActionPayload{RequestID: "missing", OfferID: "o1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeclineOfferNotifiesCompany(t *testing.T) {
	h := newHarness(t)
	h.seedRequest(t)

	rec := h.do(t, http.MethodPost, "/api/offers/decline", customerToken, &types.OfferActionPayload{RequestID: "r1", OfferID: "o1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, types.OfferStatusDeclined, h.store.offers["o1"].Status)

	assert.Eventually(t, func() bool {
		msgs := h.mail.all()
		return len(msgs) == 1 && msgs[0].To == "office@acme.test"
	}, time.Second, 10*time.Millisecond)
}

func TestCreateOffer(t *testing.T) {
	h := newHarness(t)
	h.seedRequest(t)

	payload := &types.CreateOfferPayload{RequestID: "r1", Price: 950, Message: "Putem veni sâmbătă."}

	rec := h.do(t, http.MethodPost, "/api/offers/create", customerToken, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/offers/create", companyToken, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	offer := decodeData[types.Offer](t, rec)
	assert.Equal(t, "co1", offer.CompanyID)
	assert.Equal(t, "Acme Mutări", offer.CompanyName)
	assert.Equal(t, types.OfferStatusPending, offer.Status)

	assert.Eventually(t, func() bool {
		msgs := h.mail.all()
		return len(msgs) == 1 && msgs[0].To == "ion@example.com"
	}, time.Second, 10*time.Millisecond)

	rec = h.do(t, http.MethodPost, "/api/offers/create", companyToken, &types.CreateOfferPayload{RequestID: "r1", Price: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatMessageAndMarkRead(t *testing.T) {
	h := newHarness(t)
	h.seedRequest(t)

	rec := h.do(t, http.MethodPost, "/api/chat/messages", companyToken, &types.ChatMessagePayload{OfferID: "o1", Body: "Bună ziua!"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	msg := decodeData[types.ChatMessage](t, rec)
	assert.Equal(t, types.RoleCompany, msg.SenderRole)
	assert.Equal(t, "co1", msg.SenderID)
	assert.Equal(t, "r1", msg.RequestID)

	assert.Eventually(t, func() bool {
		msgs := h.mail.all()
		return len(msgs) == 1 && msgs[0].To == "ion@example.com"
	}, time.Second, 10*time.Millisecond)

	rec = h.do(t, http.MethodPost, "/api/chat/messages", strangerToken, &types.ChatMessagePayload{OfferID: "o1", Body: "hei"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/chat/markRead", customerToken, &types.MarkReadPayload{OfferID: "o1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, h.store.readAt("o1", types.RoleCustomer).IsZero())
}

func TestEnsureCustomerClaimsGuestProfileWithoutMovingRequests(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/requests/createGuest", "", guestPayload())
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, h.store.requests, 1)
	var requestID, guestID string
	for id, r := range h.store.requests {
		requestID, guestID = id, r.CustomerID
	}
	require.NotEqual(t, "u1", guestID)

	rec = h.do(t, http.MethodPost, "/api/customers/ensure", customerToken, &types.EnsureCustomerPayload{GivenName: "Ion"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	customer := decodeData[types.Customer](t, rec)
	assert.Equal(t, guestID, customer.ID)
	assert.False(t, customer.IsGuest)

	assert.Equal(t, guestID, h.store.requests[requestID].CustomerID)

	// the token now acts as the claimed profile
	rec = h.do(t, http.MethodPost, "/api/requests/updateStatus", customerToken, &types.UpdateStatusPayload{
		RequestID: requestID,
		Status:    types.RequestStatusPaused,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// ensuring again is a no-op
	rec = h.do(t, http.MethodPost, "/api/customers/ensure", customerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, guestID, decodeData[types.Customer](t, rec).ID)
}

func TestEnsureCustomerRejectsEmailOfAnotherAccount(t *testing.T) {
	h := newHarness(t)
	subject := "someone-else"
	h.store.customers["cus9"] = &types.Customer{ID: "cus9", Email: "ion@example.com", AuthSubject: &subject}

	rec := h.do(t, http.MethodPost, "/api/customers/ensure", customerToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLocationEndpoints(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/locations/search?q=cluj", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var locations []types.Location
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &locations))
	require.NotEmpty(t, locations)
	assert.Equal(t, "Cluj-Napoca", locations[0].Name)

	rec = h.do(t, http.MethodGet, "/api/geo/cities?county=nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/geo/counties", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	h.do(t, http.MethodPost, "/api/requests/createGuest", "", guestPayload())

	rec = h.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "guest_requests_total")
}

func TestTrailingSlashRedirectKeepsMethod(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/requests/createGuest/", "", guestPayload())
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/api/requests/createGuest", rec.Header().Get("Location"))
}

func TestIdentityFromToken(t *testing.T) {
	tok, err := jwt.NewBuilder().
		Subject("cu1").
		Claim("email", "Office@Acme.test").
		Claim("custom:role", "company").
		Claim("custom:company_id", "co1").
		Build()
	require.NoError(t, err)

	identity, err := identityFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, &types.Identity{Subject: "cu1", UserID: "cu1", Email: "office@acme.test", Role: types.RoleCompany, CompanyID: "co1"}, identity)

	tok, err = jwt.NewBuilder().Subject("u1").Build()
	require.NoError(t, err)
	identity, err = identityFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, types.RoleCustomer, identity.Role)

	tok, err = jwt.NewBuilder().Subject("u1").Claim("custom:role", "company").Build()
	require.NoError(t, err)
	_, err = identityFromToken(tok)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := bearerToken(r)
	assert.ErrorIs(t, err, errNoBearer)

	r.Header.Set("Authorization", "bearer abc")
	token, err := bearerToken(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	ws := httptest.NewRequest(http.MethodGet, "/api/feed/ws?access_token=xyz", nil)
	ws.Header.Set("Connection", "Upgrade")
	ws.Header.Set("Upgrade", "websocket")
	token, err = bearerToken(ws)
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)
}
