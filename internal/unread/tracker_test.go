package unread

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"mutari/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func fixture(t *testing.T, chat ReadMarker) *Tracker {
	t.Helper()
	logger, _ := test.NewNullLogger()
	tr := New(types.RoleCustomer, chat, logger)
	tr.now = func() time.Time { return t0.Add(time.Hour) }

	tr.Update(
		[]*types.MovingRequest{{ID: "r1"}, {ID: "r2"}},
		map[string][]*types.Offer{
			"r1": {{ID: "o1", RequestID: "r1"}, {ID: "o2", RequestID: "r1"}},
			"r2": {{ID: "o3", RequestID: "r2"}},
		},
	)
	return tr
}

func msg(offerID string, role types.Role, at time.Time) *types.ChatMessage {
	return &types.ChatMessage{OfferID: offerID, SenderRole: role, CreatedAt: at}
}

func TestUnreadFromOtherPartyOnly(t *testing.T) {
	tr := fixture(t, nil)

	tr.ObserveMessage(msg("o1", types.RoleCompany, t0))
	tr.ObserveMessage(msg("o2", types.RoleCustomer, t0))
	tr.ObserveMessage(msg("o3", types.RoleCompany, t0))

	assert.Equal(t, []string{"o1", "o3"}, tr.Unread())
	assert.Equal(t, map[string]int{"r1": 1, "r2": 1}, tr.CountByRequest())
}

func TestReadMarkerComparesTimestamps(t *testing.T) {
	tr := fixture(t, nil)

	tr.SetReadMarker("o1", t0.Add(time.Minute))
	tr.ObserveMessage(msg("o1", types.RoleCompany, t0))
	assert.False(t, tr.IsUnread("o1"))

	tr.ObserveMessage(msg("o1", types.RoleCompany, t0.Add(2*time.Minute)))
	assert.True(t, tr.IsUnread("o1"))

	// older markers never move the position back
	tr.SetReadMarker("o1", t0.Add(3*time.Minute))
	tr.SetReadMarker("o1", t0)
	assert.False(t, tr.IsUnread("o1"))
}

func TestOutOfScopeOffersAreNeverUnread(t *testing.T) {
	tr := fixture(t, nil)
	tr.ObserveMessage(msg("o3", types.RoleCompany, t0))
	require.True(t, tr.IsUnread("o3"))

	// r2 hidden by a filter: its offers drop out
	tr.Update([]*types.MovingRequest{{ID: "r1"}}, map[string][]*types.Offer{
		"r1": {{ID: "o1"}},
		"r2": {{ID: "o3"}},
	})
	assert.False(t, tr.IsUnread("o3"))
	assert.Empty(t, tr.Unread())
	assert.Empty(t, tr.CountByRequest())
}

func TestMarkReadIsOptimistic(t *testing.T) {
	var calls []string
	tr := fixture(t, MarkerFunc(func(_ context.Context, offerID string) error {
		calls = append(calls, offerID)
		return errors.New("chat offline")
	}))
	tr.ObserveMessage(msg("o1", types.RoleCompany, t0))

	err := tr.MarkRead(context.Background(), "o1")
	require.Error(t, err)
	assert.False(t, tr.IsUnread("o1"))
	assert.Equal(t, []string{"o1"}, calls)
}

func TestMarkReadCoversMessagesStampedAhead(t *testing.T) {
	tr := fixture(t, nil)
	tr.ObserveMessage(msg("o1", types.RoleCompany, t0.Add(5*time.Hour)))

	require.NoError(t, tr.MarkRead(context.Background(), "o1"))
	assert.False(t, tr.IsUnread("o1"))
}

func TestMarkReadIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	offers := []string{"o1", "o2", "o3"}

	for run := 0; run < 100; run++ {
		once := fixture(t, nil)
		twice := fixture(t, nil)

		for i := 0; i < 10; i++ {
			m := msg(offers[rng.Intn(3)], types.RoleCompany, t0.Add(time.Duration(rng.Intn(120))*time.Minute))
			once.ObserveMessage(m)
			twice.ObserveMessage(m)
		}

		target := offers[rng.Intn(3)]
		require.NoError(t, once.MarkRead(context.Background(), target))
		require.NoError(t, twice.MarkRead(context.Background(), target))
		require.NoError(t, twice.MarkRead(context.Background(), target))

		require.Equal(t, once.Unread(), twice.Unread())
		require.Equal(t, once.CountByRequest(), twice.CountByRequest())
	}
}
