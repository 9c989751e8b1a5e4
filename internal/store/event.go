package store

import (
	"context"
	"fmt"

	"mutari/internal/utils"
	"mutari/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestEventsTableName = "mutari.request_events"

var requestEventsColumns = utils.StructTagValues(types.RequestEvent{})

type RequestEventRepository struct {
	pool *pgxpool.Pool
}

func NewRequestEventRepository(pool *pgxpool.Pool) *RequestEventRepository {
	return &RequestEventRepository{pool: pool}
}

// recordEvent logs a status change. Callers run it in the transaction that
// made the change.
func recordEvent(ctx context.Context, q querier, requestID string, from, to types.RequestStatus, actor string) error {
	query, args, err := psql().
		Insert(requestEventsTableName).
		Columns("id", "request_id", "from_status", "to_status", "actor").
		Values(utils.NanoID(), requestID, from, to, actor).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert request event query: %w", err)
	}

	_, err = q.Exec(ctx, query, args...)
	return unavailableOr(utils.ErrorWrapOrNil(err, "failed to record request event"))
}

// EventsByRequest returns a request's status history, oldest first.
func (r *RequestEventRepository) EventsByRequest(ctx context.Context, requestID string) ([]*types.RequestEvent, error) {
	query, args, err := psql().
		Select(requestEventsColumns...).
		From(requestEventsTableName).
		Where(sq.Eq{"request_id": requestID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate get events query: %w", err)
	}

	var events []*types.RequestEvent
	err = pgxscan.Select(ctx, r.pool, &events, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to get request events")
	}

	return events, nil
}
