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

const companyTableName = "mutari.companies"

var companyColumns = utils.StructTagValues(types.Company{})

type CompanyRepository struct {
	pool *pgxpool.Pool
}

func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

func (r *CompanyRepository) Company(ctx context.Context, companyID string) (*types.Company, error) {
	query, args, err := psql().
		Select(companyColumns...).
		From(companyTableName).
		Where(sq.Eq{"id": companyID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate company query: %w", err)
	}

	var company types.Company
	err = pgxscan.Get(ctx, r.pool, &company, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrCompanyNotFound
		}
		return nil, unavailableOr(fmt.Errorf("failed to fetch company: %w", err))
	}

	return &company, nil
}

func (r *CompanyRepository) CompaniesByIDs(ctx context.Context, companyIDs []string) ([]*types.Company, error) {
	if len(companyIDs) == 0 {
		return []*types.Company{}, nil
	}

	query, args, err := psql().
		Select(companyColumns...).
		From(companyTableName).
		Where(sq.Eq{"id": companyIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate companies-by-ids query: %w", err)
	}

	var companies []*types.Company
	err = pgxscan.Select(ctx, r.pool, &companies, query, args...)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to fetch companies by ids: %w", err))
	}

	return companies, nil
}

// UpsertCompany creates or replaces a company profile by id.
func (r *CompanyRepository) UpsertCompany(ctx context.Context, company *types.Company) error {
	now := time.Now()
	if company.ID == "" {
		company.ID = utils.NanoID()
	}
	if company.CreatedAt.IsZero() {
		company.CreatedAt = now
	}
	company.UpdatedAt = now

	query, args, err := psql().
		Insert(companyTableName).
		SetMap(utils.StructToMap(company)).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone, city = EXCLUDED.city, rating = EXCLUDED.rating, review_count = EXCLUDED.review_count, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert company query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return unavailableOr(utils.ErrorWrapOrNil(err, "failed to upsert company"))
}
