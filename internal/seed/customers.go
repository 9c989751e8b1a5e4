package seed

import (
	"context"
	"errors"
	"fmt"

	"mutari/pkg/types"
)

type CustomerEnsurer interface {
	EnsureCustomer(ctx context.Context, identity *types.Identity, payload *types.EnsureCustomerPayload) (*types.Customer, error)
}

type fakeCustomerSeed struct {
	ID         string
	Email      string
	GivenName  string
	FamilyName string
	Phone      string
}

var fakeCustomers = []fakeCustomerSeed{
	{ID: "11111111-1111-1111-1111-111111111111", Email: "ion.popescu+seed1@example.com", GivenName: "Ion", FamilyName: "Popescu", Phone: "0712345678"},
	{ID: "22222222-2222-2222-2222-222222222222", Email: "maria.ionescu+seed2@example.com", GivenName: "Maria", FamilyName: "Ionescu", Phone: "0723456789"},
	{ID: "33333333-3333-3333-3333-333333333333", Email: "andrei.stan+seed3@example.com", GivenName: "Andrei", FamilyName: "Stan", Phone: "0734567890"},
	{ID: "44444444-4444-4444-4444-444444444444", Email: "elena.dumitru+seed4@example.com", GivenName: "Elena", FamilyName: "Dumitru", Phone: "0745678901"},
	{ID: "55555555-5555-5555-5555-555555555555", Email: "mihai.georgescu+seed5@example.com", GivenName: "Mihai", FamilyName: "Georgescu", Phone: "0756789012"},
}

// SeedCustomers creates the demo customer profiles. Existing profiles are
// left as they are.
func SeedCustomers(ctx context.Context, repo CustomerEnsurer) error {
	seeded := 0
	for _, c := range fakeCustomers {
		_, err := repo.EnsureCustomer(ctx, &types.Identity{
			Subject: c.ID,
			UserID:  c.ID,
			Email:   c.Email,
			Role:    types.RoleCustomer,
		}, &types.EnsureCustomerPayload{
			GivenName:  c.GivenName,
			FamilyName: c.FamilyName,
			Phone:      c.Phone,
		})
		if errors.Is(err, types.ErrEmailTaken) {
			fmt.Printf("Skipping fake customer %s: email belongs to another account\n", c.ID)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to ensure fake customer %s: %w", c.ID, err)
		}
		seeded++
	}

	fmt.Printf("Fake customers seeded: %d ensured\n", seeded)
	return nil
}
