package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"mutari/internal/wizard"
	"mutari/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// browser carries cookies between intake calls the way a browser would,
// ignoring the Secure flag.
type browser struct {
	h       *harness
	cookies map[string]string
}

func (b *browser) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.send(req)
}

func (b *browser) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return b.send(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	rec := httptest.NewRecorder()
	b.h.svc.Handler().ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c.Value
	}
	return rec
}

func intake(t *testing.T, rec *httptest.ResponseRecorder) intakeState {
	t.Helper()
	var env struct {
		Data struct {
			Step        string            `json:"step"`
			Draft       *types.Draft      `json:"draft"`
			Errors      map[string]string `json:"errors"`
			RequestCode string            `json:"requestCode"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return intakeState{Step: env.Data.Step, Draft: env.Data.Draft, Errors: env.Data.Errors, RequestCode: env.Data.RequestCode}
}

func TestIntakeWizardFlow(t *testing.T) {
	h := newHarness(t)
	b := &browser{h: h, cookies: make(map[string]string)}

	rec := b.get(t, "/api/intake")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "origin", intake(t, rec).Step)

	// later steps are inert until reached
	rec = b.post(t, "/api/intake/steps/contact", url.Values{"first_name": {"Ion"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = b.post(t, "/api/intake/steps/origin/advance", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	state := intake(t, rec)
	assert.Equal(t, "origin", state.Step)
	assert.Contains(t, state.Errors, "fromCity")

	steps := []struct {
		step string
		form url.Values
	}{
		{"origin", url.Values{"county": {"Cluj"}, "city": {"Cluj-Napoca"}, "rooms": {"2"}}},
		{"destination", url.Values{"county": {"București"}, "city": {"București"}, "rooms": {"3"}}},
		{"services", url.Values{"services": {"moving", "packing"}}},
		{"schedule", url.Values{"move_date_mode": {"exact"}, "move_date": {"2026-11-20"}}},
	}
	for _, s := range steps {
		rec = b.post(t, "/api/intake/steps/"+s.step, s.form)
		require.Equal(t, http.StatusOK, rec.Code, s.step+": "+rec.Body.String())

		rec = b.post(t, "/api/intake/steps/"+s.step+"/advance", nil)
		require.Equal(t, http.StatusOK, rec.Code, s.step+": "+rec.Body.String())
	}
	assert.Equal(t, "contact", intake(t, rec).Step)

	// going back keeps what was entered
	rec = b.post(t, "/api/intake/steps/origin/edit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state = intake(t, rec)
	assert.Equal(t, "origin", state.Step)
	assert.Equal(t, "Cluj-Napoca", state.Draft.From.City)
	for _, s := range []string{"origin", "destination", "services", "schedule"} {
		rec = b.post(t, "/api/intake/steps/"+s+"/advance", nil)
		require.Equal(t, http.StatusOK, rec.Code, s)
	}

	rec = b.post(t, "/api/intake/steps/contact", url.Values{
		"first_name":     {"Ion"},
		"last_name":      {"Popescu"},
		"phone":          {"123"},
		"email":          {"ion@example.com"},
		"accepted_terms": {"true"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = b.post(t, "/api/intake/submit", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Format telefon invalid.", intake(t, rec).Errors["phone"])
	assert.Empty(t, h.store.requests)

	rec = b.post(t, "/api/intake/steps/contact", url.Values{"phone": {"0712 345 678"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = b.post(t, "/api/intake/submit", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	state = intake(t, rec)
	assert.NotEmpty(t, state.RequestCode)
	assert.Equal(t, "origin", state.Step)
	assert.NotContains(t, b.cookies, "mutari_draft", "submitted draft is cleared")

	require.Len(t, h.store.requests, 1)
	for _, r := range h.store.requests {
		assert.Equal(t, []types.Service{types.ServiceMoving, types.ServicePacking}, r.Services)
		assert.Equal(t, "2026-11-20", *r.MoveDate)
		assert.Equal(t, "0712345678", r.Phone)
	}
}

func TestIntakeUnknownStep(t *testing.T) {
	h := newHarness(t)
	b := &browser{h: h, cookies: make(map[string]string)}

	rec := b.post(t, "/api/intake/steps/payment/advance", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntakeSubmitBeforeFinalStep(t *testing.T) {
	h := newHarness(t)
	b := &browser{h: h, cookies: make(map[string]string)}

	rec := b.post(t, "/api/intake/submit", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIntakeDraftUnderOldKeyStartsOver(t *testing.T) {
	first := &browser{h: newHarness(t), cookies: make(map[string]string)}
	rec := first.post(t, "/api/intake/steps/origin", url.Values{"county": {"Cluj"}, "city": {"Cluj-Napoca"}, "rooms": {"2"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, first.cookies, "mutari_draft")

	// a restarted server generates a new cookie key
	restarted := &browser{h: newHarness(t), cookies: first.cookies}
	for range 2 {
		rec = restarted.get(t, "/api/intake")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		state := intake(t, rec)
		assert.Equal(t, "origin", state.Step)
		assert.Empty(t, state.Draft.From.City)
	}
	assert.NotContains(t, restarted.cookies, "mutari_draft")

	rec = restarted.post(t, "/api/intake/steps/origin", url.Values{"county": {"Iași"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Iași", intake(t, rec).Draft.From.County)
}

func TestIntakeLongDetails(t *testing.T) {
	h := newHarness(t)
	b := &browser{h: h, cookies: make(map[string]string)}

	steps := []struct {
		step string
		form url.Values
	}{
		{"origin", url.Values{"county": {"Cluj"}, "city": {"Cluj-Napoca"}, "rooms": {"2"}}},
		{"destination", url.Values{"county": {"București"}, "city": {"București"}, "rooms": {"3"}}},
		{"services", url.Values{"services": {"moving"}}},
	}
	for _, s := range steps {
		require.Equal(t, http.StatusOK, b.post(t, "/api/intake/steps/"+s.step, s.form).Code)
		require.Equal(t, http.StatusOK, b.post(t, "/api/intake/steps/"+s.step+"/advance", nil).Code)
	}

	details := strings.Repeat("Dulap mare cu usi glisante, canapea extensibila. ", 62)[:3000]
	rec := b.post(t, "/api/intake/steps/schedule", url.Values{"details": {details}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = b.get(t, "/api/intake")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, details, intake(t, rec).Draft.Details)

	rec = b.post(t, "/api/intake/steps/schedule", url.Values{"details": {strings.Repeat("ă", 4001)}})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	state := intake(t, rec)
	assert.Equal(t, "Descrierea poate avea cel mult 4000 de caractere.", state.Errors["details"])
	assert.Equal(t, details, state.Draft.Details)
}

func TestIntakeSubmitterAppliesPayloadRules(t *testing.T) {
	h := newHarness(t)

	payload := guestPayload()
	payload.MediaURLs = []string{"not a url"}

	_, err := (&intakeSubmitter{s: h.svc}).CreateGuest(context.Background(), payload)
	require.Error(t, err)

	var errs wizard.FieldErrors
	require.ErrorAs(t, err, &errs)
	assert.True(t, errs.Has("mediaUrls"))
	assert.Empty(t, h.store.requests)
}
