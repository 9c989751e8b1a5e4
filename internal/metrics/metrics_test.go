package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveHTTP(http.MethodPost, "/api/offers/accept", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTP(http.MethodPost, "/api/offers/accept", http.StatusOK, 30*time.Millisecond)
	m.OfferAction("accept", "unavailable")
	m.Email("new_offer", false)
	m.FeedConnected()
	m.FeedConnected()
	m.FeedDisconnected()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/offers/accept", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.offerActions.WithLabelValues("accept", "unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emails.WithLabelValues("new_offer", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.feedConnections))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.GuestRequest("created")
	m.MediaRemoved(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mutari_guest_requests_total{outcome="created"} 1`)
	assert.Contains(t, rec.Body.String(), "mutari_media_objects_removed_total 2")
}
