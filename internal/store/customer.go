package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mutari/internal/utils"
	"mutari/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const customerTableName = "mutari.customers"

var customerColumns = utils.StructTagValues(types.Customer{})

type CustomerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func (r *CustomerRepository) Customer(ctx context.Context, customerID string) (*types.Customer, error) {
	return r.customerWhere(ctx, r.pool, sq.Eq{"id": customerID}, false)
}

func (r *CustomerRepository) CustomerByEmail(ctx context.Context, email string) (*types.Customer, error) {
	return r.customerWhere(ctx, r.pool, sq.Eq{"email": normalizeEmail(email)}, false)
}

func (r *CustomerRepository) customerWhere(ctx context.Context, q querier, where sq.Eq, lock bool) (*types.Customer, error) {
	builder := psql().
		Select(customerColumns...).
		From(customerTableName).
		Where(where).
		Limit(1)
	if lock {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate customer query: %w", err)
	}

	var customer types.Customer
	err = pgxscan.Get(ctx, q, &customer, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrCustomerNotFound
		}
		return nil, unavailableOr(fmt.Errorf("failed to fetch customer: %w", err))
	}

	return &customer, nil
}

// GuestCustomer returns the customer owning email, creating a guest
// profile when none exists.
func (r *CustomerRepository) GuestCustomer(ctx context.Context, email, givenName, familyName, phone string) (*types.Customer, error) {
	now := time.Now()

	query, args, err := psql().
		Insert(customerTableName).
		Columns("id", "email", "given_name", "family_name", "phone", "is_guest", "created_at", "updated_at").
		Values(utils.NanoID(), normalizeEmail(email), trimmedOrNil(givenName), trimmedOrNil(familyName), trimmedOrNil(phone), true, now, now).
		Suffix("ON CONFLICT (email) DO UPDATE SET updated_at = EXCLUDED.updated_at RETURNING " + strings.Join(customerColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate guest customer query: %w", err)
	}

	var customer types.Customer
	err = pgxscan.Get(ctx, r.pool, &customer, query, args...)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to upsert guest customer: %w", err))
	}

	return &customer, nil
}

// CustomerBySubject returns the profile a sign-in subject is bound to.
func (r *CustomerRepository) CustomerBySubject(ctx context.Context, subject string) (*types.Customer, error) {
	return r.customerWhere(ctx, r.pool, sq.Eq{"auth_subject": subject}, false)
}

// EnsureCustomer returns the profile bound to the caller, creating it on
// first sign-in. A guest profile with the same email is claimed in place:
// it keeps its id, so the requests it owns never change hands.
func (r *CustomerRepository) EnsureCustomer(ctx context.Context, identity *types.Identity, payload *types.EnsureCustomerPayload) (*types.Customer, error) {
	subject := identity.Subject
	if subject == "" {
		return nil, errors.New("identity has no subject")
	}

	existing, err := r.CustomerBySubject(ctx, subject)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, types.ErrCustomerNotFound) {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to begin ensure customer: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	email := normalizeEmail(identity.Email)
	now := time.Now()

	guest, err := r.customerWhere(ctx, tx, sq.Eq{"email": email}, true)
	switch {
	case errors.Is(err, types.ErrCustomerNotFound):
		guest = nil
	case err != nil:
		return nil, err
	case !guest.IsGuest:
		return nil, types.ErrEmailTaken
	}

	var customer *types.Customer
	if guest != nil {
		customer = guest
		customer.GivenName = firstNonNil(customer.GivenName, trimmedOrNil(payload.GivenName))
		customer.FamilyName = firstNonNil(customer.FamilyName, trimmedOrNil(payload.FamilyName))
		customer.Phone = firstNonNil(customer.Phone, trimmedOrNil(payload.Phone))
		customer.IsGuest = false
		customer.AuthSubject = &subject
		customer.UpdatedAt = now

		if err := r.exec(ctx, tx, psql().Update(customerTableName).
			Set("given_name", customer.GivenName).
			Set("family_name", customer.FamilyName).
			Set("phone", customer.Phone).
			Set("is_guest", false).
			Set("auth_subject", subject).
			Set("updated_at", now).
			Where(sq.Eq{"id": customer.ID})); err != nil {
			return nil, err
		}
	} else {
		customer = &types.Customer{
			ID:          subject,
			Email:       email,
			GivenName:   trimmedOrNil(payload.GivenName),
			FamilyName:  trimmedOrNil(payload.FamilyName),
			Phone:       trimmedOrNil(payload.Phone),
			AuthSubject: &subject,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := r.exec(ctx, tx, psql().Insert(customerTableName).SetMap(utils.StructToMap(customer))); err != nil {
			if uniqueViolation(err, "customers_pkey") {
				// a concurrent first sign-in of the same subject won
				_ = tx.Rollback(ctx)
				return r.CustomerBySubject(ctx, subject)
			}
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to commit ensure customer: %w", err))
	}

	return customer, nil
}

func (r *CustomerRepository) exec(ctx context.Context, q querier, builder sq.Sqlizer) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate customer statement: %w", err)
	}

	_, err = q.Exec(ctx, query, args...)
	return unavailableOr(utils.ErrorWrapOrNil(err, "failed to write customer"))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmedOrNil(s string) *string {
	return utils.StringPtrOrNil(strings.TrimSpace(s))
}

func firstNonNil(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
