package seed

import (
	"context"
	"fmt"

	"mutari/pkg/types"
)

type CompanyUpserter interface {
	UpsertCompany(ctx context.Context, company *types.Company) error
}

// Companies are the demo moving companies. This list is the source of
// truth: running the seed again updates them in place.
//
// To generate new IDs: `go run ./cmd/mutari id`
var Companies = []types.Company{
	{
		ID:          "cmpAcmeMutariCluj000000000000001",
		Name:        "Acme Mutări",
		Email:       "office+seed@acme-mutari.example",
		Phone:       "0740123456",
		City:        "Cluj-Napoca",
		Rating:      4.7,
		ReviewCount: 128,
	},
	{
		ID:          "cmpTransCarpatBrasov00000000002",
		Name:        "TransCarpat Relocări",
		Email:       "contact+seed@transcarpat.example",
		Phone:       "0751234567",
		City:        "Brașov",
		Rating:      4.3,
		ReviewCount: 57,
	},
	{
		ID:          "cmpDunareaMovingGalati000000003",
		Name:        "Dunărea Moving",
		Email:       "hello+seed@dunarea-moving.example",
		Phone:       "0762345678",
		City:        "Galați",
		Rating:      3.9,
		ReviewCount: 21,
	},
	{
		ID:          "cmpCapitalaExpressBucuresti0004",
		Name:        "Capitala Express",
		Email:       "oferte+seed@capitala-express.example",
		Phone:       "0773456789",
		City:        "București",
		Rating:      4.9,
		ReviewCount: 342,
	},
}

func SeedCompanies(ctx context.Context, repo CompanyUpserter) error {
	for i := range Companies {
		company := Companies[i]
		if err := repo.UpsertCompany(ctx, &company); err != nil {
			return fmt.Errorf("failed to upsert company %s: %w", company.ID, err)
		}
	}

	fmt.Printf("Companies seeded: %d upserted\n", len(Companies))
	return nil
}
