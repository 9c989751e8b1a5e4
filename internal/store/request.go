package store

import (
	"context"
	"fmt"
	"time"

	"mutari/internal/utils"
	"mutari/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestTableName = "mutari.moving_requests"

var requestColumns = utils.StructTagValues(types.MovingRequest{})

const requestCodeAttempts = 5

type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func (r *RequestRepository) Request(ctx context.Context, requestID string) (*types.MovingRequest, error) {
	return r.requestWhere(ctx, r.pool, sq.Eq{"id": requestID}, false)
}

func (r *RequestRepository) RequestByCode(ctx context.Context, code string) (*types.MovingRequest, error) {
	return r.requestWhere(ctx, r.pool, sq.Eq{"request_code": code}, false)
}

func (r *RequestRepository) requestWhere(ctx context.Context, q querier, where sq.Eq, lock bool) (*types.MovingRequest, error) {
	builder := psql().Select(requestColumns...).From(requestTableName).
		Where(where).
		Limit(1)
	if lock {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request query: %w", err)
	}

	var request = new(types.MovingRequest)
	err = pgxscan.Get(ctx, q, request, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, unavailableOr(fmt.Errorf("failed to fetch request: %w", err))
	}

	if err != nil {
		return nil, types.ErrRequestNotFound
	}

	normalizeRequest(request)
	return request, nil
}

// RequestsByCustomer returns the customer's requests with one of statuses,
// newest first. An empty statuses matches every status.
func (r *RequestRepository) RequestsByCustomer(ctx context.Context, customerID string, statuses []types.RequestStatus) ([]*types.MovingRequest, error) {

	where := sq.And{sq.Eq{"customer_id": customerID}}
	if len(statuses) > 0 {
		where = append(where, sq.Eq{"status": statusStrings(statuses)})
	}

	query, args, err := psql().Select(requestColumns...).From(requestTableName).
		Where(where).
		OrderBy("created_at desc", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate customer requests query: %w", err)
	}

	var requests = make([]*types.MovingRequest, 0)
	err = pgxscan.Select(ctx, r.pool, &requests, query, args...)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to fetch customer requests: %w", err))
	}

	for _, request := range requests {
		normalizeRequest(request)
	}

	return requests, nil
}

// CreateRequest stores a new active request and assigns its id and code.
func (r *RequestRepository) CreateRequest(ctx context.Context, request *types.MovingRequest) error {

	now := time.Now()
	request.ID = utils.NanoID()
	request.Status = types.RequestStatusActive
	request.CreatedAt = now
	request.UpdatedAt = now
	if request.Services == nil {
		request.Services = []types.Service{}
	}
	if request.MediaURLs == nil {
		request.MediaURLs = []string{}
	}

	var err error
	for attempt := 0; attempt < requestCodeAttempts; attempt++ {
		request.RequestCode = utils.StringPtr(utils.RequestCode())

		requestMap := utils.StructToMap(request)

		query, args, qerr := psql().Insert(requestTableName).SetMap(requestMap).ToSql()
		if qerr != nil {
			return fmt.Errorf("failed to generate insert request query: %w", qerr)
		}

		_, err = r.pool.Exec(ctx, query, args...)
		if !uniqueViolation(err, "moving_requests_request_code_key") {
			break
		}
	}

	return unavailableOr(utils.ErrorWrapOrNil(err, "failed to create request"))
}

func (r *RequestRepository) UpdateMedia(ctx context.Context, requestID string, mediaURLs []string) error {
	if mediaURLs == nil {
		mediaURLs = []string{}
	}

	query, args, err := psql().Update(requestTableName).
		Set("media_urls", mediaURLs).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": requestID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update media query for request %s: %w", requestID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return unavailableOr(fmt.Errorf("failed to update media: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return types.ErrRequestNotFound
	}
	return nil
}

// UpdateStatus moves a request along the status table and records the
// change. It returns the request as it was before the change.
func (r *RequestRepository) UpdateStatus(ctx context.Context, requestID string, to types.RequestStatus, actor string) (*types.MovingRequest, error) {

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to begin status update: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	before, err := r.requestWhere(ctx, tx, sq.Eq{"id": requestID}, true)
	if err != nil {
		return nil, err
	}

	if before.Status == to {
		return before, nil
	}

	if !types.CanTransition(before.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", types.ErrInvalidTransition, before.Status, to)
	}

	// by hand, accepted is only reachable while an accepted offer exists,
	// as on a reopened request whose offer was accepted before closing
	if to == types.RequestStatusAccepted {
		accepted, err := countAcceptedOffers(ctx, tx, requestID)
		if err != nil {
			return nil, err
		}
		if accepted == 0 {
			return nil, fmt.Errorf("%w: no accepted offer on request %s", types.ErrInvalidTransition, requestID)
		}
	}

	if err := setRequestStatus(ctx, tx, requestID, to); err != nil {
		return nil, err
	}

	if err := recordEvent(ctx, tx, requestID, before.Status, to, actor); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to commit status update: %w", err))
	}

	return before, nil
}

func setRequestStatus(ctx context.Context, q querier, requestID string, to types.RequestStatus) error {
	query, args, err := psql().Update(requestTableName).
		Set("status", to).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": requestID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update status query for request %s: %w", requestID, err)
	}

	_, err = q.Exec(ctx, query, args...)
	return unavailableOr(utils.ErrorWrapOrNil(err, "failed to update request status"))
}

// PendingOffersSummary is an active request whose offers wait for an answer.
type PendingOffersSummary struct {
	Request       *types.MovingRequest
	PendingOffers int
	CustomerEmail string
}

// RequestsWithPendingOffers lists active requests holding pending offers
// created before cutoff.
func (r *RequestRepository) RequestsWithPendingOffers(ctx context.Context, cutoff time.Time) ([]*PendingOffersSummary, error) {

	countQuery, countArgs, err := psql().Select("request_id", "count(*) AS pending").
		From(offerTableName).
		Where(sq.Eq{"status": types.OfferStatusPending}).
		Where(sq.Lt{"created_at": cutoff}).
		GroupBy("request_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pending offers query: %w", err)
	}

	var counts []struct {
		RequestID string `db:"request_id"`
		Pending   int    `db:"pending"`
	}
	err = pgxscan.Select(ctx, r.pool, &counts, countQuery, countArgs...)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to fetch pending offers: %w", err))
	}

	if len(counts) == 0 {
		return []*PendingOffersSummary{}, nil
	}

	ids := make([]string, 0, len(counts))
	pending := make(map[string]int, len(counts))
	for _, c := range counts {
		ids = append(ids, c.RequestID)
		pending[c.RequestID] = c.Pending
	}

	query, args, err := psql().Select(requestColumns...).From(requestTableName).
		Where(sq.Eq{"id": ids, "status": statusStrings([]types.RequestStatus{types.RequestStatusActive})}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reminder requests query: %w", err)
	}

	var requests []*types.MovingRequest
	err = pgxscan.Select(ctx, r.pool, &requests, query, args...)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to fetch reminder requests: %w", err))
	}

	out := make([]*PendingOffersSummary, 0, len(requests))
	for _, request := range requests {
		normalizeRequest(request)
		out = append(out, &PendingOffersSummary{
			Request:       request,
			PendingOffers: pending[request.ID],
			CustomerEmail: request.Email,
		})
	}
	return out, nil
}

// normalizeRequest maps legacy status values and fills nil slices.
func normalizeRequest(request *types.MovingRequest) {
	if status, ok := types.ParseRequestStatus(string(request.Status)); ok {
		request.Status = status
	}
	if request.Services == nil {
		request.Services = []types.Service{}
	}
	if request.MediaURLs == nil {
		request.MediaURLs = []string{}
	}
}

// legacyStatuses are stored values still found on old rows.
var legacyStatuses = map[types.RequestStatus][]string{
	types.RequestStatusActive:   {"pending"},
	types.RequestStatusAccepted: {"in-progress", "in_progress"},
	types.RequestStatusClosed:   {"completed"},
}

// statusStrings lists the stored values matching statuses, legacy ones
// included.
func statusStrings(statuses []types.RequestStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
		out = append(out, legacyStatuses[s]...)
	}
	return out
}
