package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"mutari/pkg/types"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnavailable(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":               {nil, false},
		"deadline":          {fmt.Errorf("query: %w", context.DeadlineExceeded), true},
		"connection lost":   {&pgconn.PgError{Code: "08006"}, true},
		"too many clients":  {&pgconn.PgError{Code: "53300"}, true},
		"admin shutdown":    {&pgconn.PgError{Code: "57P01"}, true},
		"unique violation":  {&pgconn.PgError{Code: "23505"}, false},
		"plain error":       {errors.New("boom"), false},
		"already sentinel":  {types.ErrUnavailable, true},
		"wrapped not found": {fmt.Errorf("x: %w", types.ErrRequestNotFound), false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Unavailable(tc.err))
		})
	}
}

func TestUnavailableOrTagsConnectivityErrors(t *testing.T) {
	err := unavailableOr(fmt.Errorf("failed to fetch: %w", &pgconn.PgError{Code: "08006"}))
	assert.ErrorIs(t, err, types.ErrUnavailable)

	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr)

	plain := errors.New("syntax")
	assert.Same(t, plain, unavailableOr(plain))
	assert.NoError(t, unavailableOr(nil))
}

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "offers_one_accepted_idx"})
	assert.True(t, uniqueViolation(err, "offers_one_accepted_idx"))
	assert.True(t, uniqueViolation(err, ""))
	assert.False(t, uniqueViolation(err, "moving_requests_request_code_key"))
	assert.False(t, uniqueViolation(errors.New("x"), ""))
}

func TestSelectOffersJoinsCompany(t *testing.T) {
	query, args, err := selectOffers().Where("o.request_id = ?", "r1").ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM mutari.offers o JOIN mutari.companies c ON c.id = o.company_id")
	assert.Contains(t, query, "c.name AS company_name")
	assert.Contains(t, query, "o.request_id = $1")
	assert.Equal(t, []any{"r1"}, args)
}

func TestColumnsMatchTypes(t *testing.T) {
	assert.Contains(t, requestColumns, "request_code")
	assert.Contains(t, requestColumns, "media_urls")
	assert.NotContains(t, offerTableColumns, "company_name")
	assert.Equal(t, []string{"offer_id", "role", "last_read_at"}, readMarkerColumns)
}

func TestStatusStringsIncludesLegacyValues(t *testing.T) {
	got := statusStrings([]types.RequestStatus{types.RequestStatusActive, types.RequestStatusAccepted, types.RequestStatusPaused})
	assert.ElementsMatch(t, []string{"active", "pending", "accepted", "in-progress", "in_progress", "paused"}, got)
}
