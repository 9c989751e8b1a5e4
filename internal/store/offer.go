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

const offerTableName = "mutari.offers"

// columns stored on the offers table; company_* come from the join
var offerTableColumns = utils.StructTagValues(offerRow{})

type offerRow struct {
	ID        string            `db:"id"`
	RequestID string            `db:"request_id"`
	CompanyID string            `db:"company_id"`
	Price     float64           `db:"price"`
	Message   string            `db:"message"`
	Status    types.OfferStatus `db:"status"`
	CreatedAt time.Time         `db:"created_at"`
	UpdatedAt time.Time         `db:"updated_at"`
}

type OfferRepository struct {
	pool *pgxpool.Pool
}

func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

func selectOffers() sq.SelectBuilder {
	columns := append(utils.PrefixColumns("o", offerTableColumns),
		"c.name AS company_name",
		"c.email AS company_email",
		"c.phone AS company_phone",
	)

	return psql().Select(columns...).
		From(offerTableName + " o").
		Join(companyTableName + " c ON c.id = o.company_id")
}

func (r *OfferRepository) Offer(ctx context.Context, offerID string) (*types.Offer, error) {
	return offerWhere(ctx, r.pool, sq.Eq{"o.id": offerID})
}

func offerWhere(ctx context.Context, q querier, where sq.Eq) (*types.Offer, error) {
	query, args, err := selectOffers().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate offer query: %w", err)
	}

	var offer types.Offer
	err = pgxscan.Get(ctx, q, &offer, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrOfferNotFound
		}
		return nil, unavailableOr(fmt.Errorf("failed to fetch offer: %w", err))
	}

	return &offer, nil
}

// OffersByRequest returns a request's offers, newest first.
func (r *OfferRepository) OffersByRequest(ctx context.Context, requestID string) ([]*types.Offer, error) {
	query, args, err := selectOffers().
		Where(sq.Eq{"o.request_id": requestID}).
		OrderBy("o.created_at desc", "o.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request offers query: %w", err)
	}

	var offers = make([]*types.Offer, 0)
	err = pgxscan.Select(ctx, r.pool, &offers, query, args...)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to fetch request offers: %w", err))
	}

	return offers, nil
}

// CreateOffer stores a company's bid on an active request.
func (r *OfferRepository) CreateOffer(ctx context.Context, offer *types.Offer) error {

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return unavailableOr(fmt.Errorf("failed to begin create offer: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, err := lockRequestStatus(ctx, tx, offer.RequestID)
	if err != nil {
		return err
	}
	if status != types.RequestStatusActive {
		return types.ErrRequestNotOpen
	}

	now := time.Now()
	offer.ID = utils.NanoID()
	offer.Status = types.OfferStatusPending
	offer.CreatedAt = now
	offer.UpdatedAt = now

	query, args, err := psql().Insert(offerTableName).
		SetMap(utils.StructToMap(offerRow{
			ID:        offer.ID,
			RequestID: offer.RequestID,
			CompanyID: offer.CompanyID,
			Price:     offer.Price,
			Message:   offer.Message,
			Status:    offer.Status,
			CreatedAt: offer.CreatedAt,
			UpdatedAt: offer.UpdatedAt,
		})).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert offer query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		if uniqueViolation(err, "offers_request_id_company_id_key") {
			return types.ErrOfferExists
		}
		return unavailableOr(fmt.Errorf("failed to create offer: %w", err))
	}

	return unavailableOr(utils.ErrorWrapOrNil(tx.Commit(ctx), "failed to commit offer"))
}

// AcceptOffer marks offerID accepted and the request accepted. The request
// row lock serializes concurrent accepts; the partial unique index backs it.
// Other offers keep their status.
func (r *OfferRepository) AcceptOffer(ctx context.Context, requestID, offerID, actor string) (*types.Offer, error) {

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to begin accept offer: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, err := lockRequestStatus(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}

	offer, err := offerWhere(ctx, tx, sq.Eq{"o.id": offerID, "o.request_id": requestID})
	if err != nil {
		return nil, err
	}

	if offer.Status != types.OfferStatusPending {
		return nil, types.ErrOfferNotPending
	}

	accepted, err := countAcceptedOffers(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if accepted > 0 {
		return nil, types.ErrOfferAlreadyAccepted
	}

	if !types.CanTransition(status, types.RequestStatusAccepted) {
		return nil, fmt.Errorf("%w: %s to %s", types.ErrInvalidTransition, status, types.RequestStatusAccepted)
	}

	if err := setOfferStatus(ctx, tx, offerID, types.OfferStatusAccepted); err != nil {
		if uniqueViolation(err, "offers_one_accepted_idx") {
			return nil, types.ErrOfferAlreadyAccepted
		}
		return nil, err
	}

	if err := setRequestStatus(ctx, tx, requestID, types.RequestStatusAccepted); err != nil {
		return nil, err
	}

	if err := recordEvent(ctx, tx, requestID, status, types.RequestStatusAccepted, actor); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to commit accept offer: %w", err))
	}

	offer.Status = types.OfferStatusAccepted
	return offer, nil
}

// DeclineOffer marks a pending offer declined.
func (r *OfferRepository) DeclineOffer(ctx context.Context, requestID, offerID string) (*types.Offer, error) {

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to begin decline offer: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := lockRequestStatus(ctx, tx, requestID); err != nil {
		return nil, err
	}

	offer, err := offerWhere(ctx, tx, sq.Eq{"o.id": offerID, "o.request_id": requestID})
	if err != nil {
		return nil, err
	}

	if offer.Status != types.OfferStatusPending {
		return nil, types.ErrOfferNotPending
	}

	if err := setOfferStatus(ctx, tx, offerID, types.OfferStatusDeclined); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to commit decline offer: %w", err))
	}

	offer.Status = types.OfferStatusDeclined
	return offer, nil
}

func countAcceptedOffers(ctx context.Context, q querier, requestID string) (int, error) {
	query, args, err := psql().Select("count(*)").From(offerTableName).
		Where(sq.Eq{"request_id": requestID, "status": string(types.OfferStatusAccepted)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate accepted count query: %w", err)
	}

	var accepted int
	if err := q.QueryRow(ctx, query, args...).Scan(&accepted); err != nil {
		return 0, unavailableOr(fmt.Errorf("failed to count accepted offers: %w", err))
	}
	return accepted, nil
}

func lockRequestStatus(ctx context.Context, q querier, requestID string) (types.RequestStatus, error) {
	query, args, err := psql().Select("status").From(requestTableName).
		Where(sq.Eq{"id": requestID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to generate lock request query: %w", err)
	}

	var status string
	err = q.QueryRow(ctx, query, args...).Scan(&status)
	if err != nil {
		if pgxscan.NotFound(err) {
			return "", types.ErrRequestNotFound
		}
		return "", unavailableOr(fmt.Errorf("failed to lock request: %w", err))
	}

	parsed, ok := types.ParseRequestStatus(status)
	if !ok {
		return "", fmt.Errorf("request %s has unknown status %q", requestID, status)
	}
	return parsed, nil
}

func setOfferStatus(ctx context.Context, q querier, offerID string, status types.OfferStatus) error {
	query, args, err := psql().Update(offerTableName).
		Set("status", string(status)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": offerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update offer status query: %w", err)
	}

	_, err = q.Exec(ctx, query, args...)
	return unavailableOr(utils.ErrorWrapOrNil(err, "failed to update offer status"))
}
