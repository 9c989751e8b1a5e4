package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allZero() []Data {
	return []Data{
		GuestRequestConfirmed{},
		NewOffer{},
		OfferAccepted{},
		OfferDeclined{},
		NewMessage{},
		PendingOffersReminder{},
	}
}

func TestEveryEventRendersADocument(t *testing.T) {
	for _, d := range allZero() {
		t.Run(string(d.Event()), func(t *testing.T) {
			out, err := Render(d)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(out.HTML, "<!DOCTYPE html>"))
			assert.Contains(t, out.HTML, "</html>")
			assert.NotEmpty(t, out.Subject)

			for _, bad := range []string{"undefined", "<no value>", "<nil>", "%!"} {
				assert.NotContains(t, out.HTML, bad)
				assert.NotContains(t, out.Subject, bad)
			}
		})
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	d := NewOffer{CustomerName: "Ion", CompanyName: "Acme Mutări", RequestCode: "MT-ABC234", Price: 1250, Message: "Putem veni sâmbătă."}

	a, err := Render(d)
	require.NoError(t, err)
	b, err := Render(d)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	assert.Equal(t, "Ofertă nouă de la Acme Mutări (MT-ABC234)", a.Subject)
	assert.Contains(t, a.HTML, "Bună, Ion!")
	assert.Contains(t, a.HTML, "MT-ABC234")
	assert.Contains(t, a.HTML, " lei")
	assert.Contains(t, a.HTML, "Putem veni sâmbătă.")
}

func TestZeroPriceRendersEmpty(t *testing.T) {
	out, err := Render(OfferAccepted{CompanyName: "Acme"})
	require.NoError(t, err)
	assert.NotContains(t, out.HTML, "lei")
	assert.Contains(t, out.HTML, "Bună, Acme!")
}

func TestUserTextIsEscaped(t *testing.T) {
	out, err := Render(NewMessage{SenderName: "Ana", Preview: `<script>alert(1)</script>`})
	require.NoError(t, err)
	assert.NotContains(t, out.HTML, "<script>")
	assert.Contains(t, out.HTML, "&lt;script&gt;")
}

func TestMessagePreviewIsTruncated(t *testing.T) {
	out, err := Render(NewMessage{Preview: strings.Repeat("ă", maxPreview+50)})
	require.NoError(t, err)
	assert.Contains(t, out.HTML, strings.Repeat("ă", maxPreview)+"…")
	assert.NotContains(t, out.HTML, strings.Repeat("ă", maxPreview+1))
}

func TestRenderNil(t *testing.T) {
	_, err := Render(nil)
	assert.Error(t, err)
}

func TestHTTPSender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var body httpSendBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Mutari <no-reply@mutari.ro>", body.From)
		assert.Equal(t, []string{"ion@example.com"}, body.To)
		assert.Equal(t, "support@mutari.ro", body.ReplyTo)

		_, _ = w.Write([]byte(`{"id":"em_1"}`))
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, "key", "Mutari <no-reply@mutari.ro>", srv.Client())
	res, err := s.Send(context.Background(), Message{To: "ion@example.com", Subject: "s", HTML: "<p>x</p>", ReplyTo: "support@mutari.ro"})
	require.NoError(t, err)
	assert.Equal(t, Result{Success: true, ID: "em_1"}, res)
}

func TestHTTPSenderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid from", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	res, err := NewHTTPSender(srv.URL, "key", "x", nil).Send(context.Background(), Message{To: "a@b.ro"})
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "invalid from", res.Error)
}

type funcSender func(ctx context.Context, msg Message) (Result, error)

func (f funcSender) Send(ctx context.Context, msg Message) (Result, error) { return f(ctx, msg) }

func TestCompositeSender(t *testing.T) {
	failing := funcSender(func(context.Context, Message) (Result, error) { return Result{}, errors.New("down") })
	ok := funcSender(func(context.Context, Message) (Result, error) { return Result{Success: true, ID: "1"}, nil })

	res, err := NewCompositeSender(failing, ok).Send(context.Background(), Message{})
	require.NoError(t, err)
	assert.Equal(t, "1", res.ID)

	res, err = NewCompositeSender(failing, failing).Send(context.Background(), Message{})
	require.Error(t, err)
	assert.False(t, res.Success)

	_, err = NewCompositeSender().Send(context.Background(), Message{})
	assert.Error(t, err)
}

func TestDispatcherLogsFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()

	var sent Message
	var events []Event
	d := NewDispatcher(funcSender(func(_ context.Context, msg Message) (Result, error) {
		sent = msg
		return Result{}, errors.New("smtp down")
	}), "support@mutari.ro", logger)
	d.OnResult = func(e Event, _ Result) { events = append(events, e) }

	res := d.Dispatch(context.Background(), "ion@example.com", GuestRequestConfirmed{RequestCode: "MT-ABC234"})
	assert.False(t, res.Success)
	assert.Equal(t, "smtp down", res.Error)
	assert.Equal(t, "support@mutari.ro", sent.ReplyTo)
	assert.Contains(t, sent.Subject, "MT-ABC234")
	assert.Equal(t, []Event{EventGuestRequestConfirmed}, events)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestDispatcherSkipsMissingRecipient(t *testing.T) {
	logger, hook := test.NewNullLogger()
	d := NewDispatcher(funcSender(func(context.Context, Message) (Result, error) {
		t.Fatal("sender called")
		return Result{}, nil
	}), "", logger)

	res := d.Dispatch(context.Background(), "", OfferDeclined{})
	assert.False(t, res.Success)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestLogSender(t *testing.T) {
	logger, hook := test.NewNullLogger()
	res, err := (&LogSender{Logger: logger}).Send(context.Background(), Message{To: "a@b.ro", Subject: "s"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "a@b.ro", hook.LastEntry().Data["to"])
}
