package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"mutari/internal/geo"
	"mutari/internal/utils"
	"mutari/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

// seedMarker prefixes the details of every generated request so reset can
// find them again.
const seedMarker = "[seed] "

var fakeRequestDetails = []string{
	"Canapea extensibilă și un dulap mare, restul sunt cutii.",
	"Avem un pian vertical, etajul 3 fără lift.",
	"Mutare birou mic, 6 stații de lucru și un server rack.",
	"Doar câteva obiecte: frigider, mașină de spălat și un pat.",
	"Familie cu doi copii, multe cutii cu jucării și cărți.",
	"Avem nevoie și de ambalare pentru veselă și tablouri.",
	"Depozitare pentru aproximativ două luni între mutări.",
	"Debarasare pivniță înainte de mutare.",
}

var fakeOfferMessages = []string{
	"Putem veni cu o echipă de 3 oameni și o autoutilitară de 3.5t.",
	"Prețul include ambalarea și asigurarea bunurilor.",
	"Disponibili în weekend, cu plata la finalizare.",
	"Oferim și demontarea și remontarea mobilierului.",
}

var fakeChatMessages = []string{
	"Bună ziua! Putem face o evaluare video mâine la ora 18?",
	"Confirmăm data. Vă sunăm cu o zi înainte.",
	"Aveți acces pentru camion în fața blocului?",
}

type weightedRequestStatus struct {
	Status types.RequestStatus
	Weight int
}

var weightedStatuses = []weightedRequestStatus{
	{Status: types.RequestStatusActive, Weight: 50},
	{Status: types.RequestStatusPaused, Weight: 10},
	{Status: types.RequestStatusAccepted, Weight: 25},
	{Status: types.RequestStatusClosed, Weight: 15},
}

type RequestWriter interface {
	CreateRequest(ctx context.Context, request *types.MovingRequest) error
	UpdateStatus(ctx context.Context, requestID string, to types.RequestStatus, actor string) (*types.MovingRequest, error)
}

type OfferWriter interface {
	CreateOffer(ctx context.Context, offer *types.Offer) error
	AcceptOffer(ctx context.Context, requestID, offerID, actor string) (*types.Offer, error)
}

type MessageWriter interface {
	CreateMessage(ctx context.Context, message *types.ChatMessage) error
}

type RequestSeeder struct {
	Requests RequestWriter
	Offers   OfferWriter
	Chat     MessageWriter
	Geo      *geo.Index
	Rand     *rand.Rand
	Now      func() time.Time
}

// SeedFakeRequests creates count requests spread across the fake customers,
// each with offers from the demo companies, then moves a share of them into
// paused, accepted or closed.
func (s *RequestSeeder) SeedFakeRequests(ctx context.Context, count int) error {
	if count <= 0 {
		fmt.Println("Skipping fake requests seed because count <= 0")
		return nil
	}
	if len(fakeCustomers) == 0 || len(Companies) == 0 {
		return fmt.Errorf("no fake customers or companies available")
	}

	rng := s.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	index := s.Geo
	if index == nil {
		index = geo.NewIndex()
	}
	counties := index.CountyNames()

	created, offers := 0, 0
	for i := 0; i < count; i++ {
		customer := fakeCustomers[i%len(fakeCustomers)]
		request := fakeRequest(rng, index, counties, customer, now())

		if err := s.Requests.CreateRequest(ctx, request); err != nil {
			return fmt.Errorf("failed to create fake request %d: %w", i+1, err)
		}
		created++

		status := pickWeightedStatus(rng)
		if status == types.RequestStatusPaused {
			if _, err := s.Requests.UpdateStatus(ctx, request.ID, status, customer.ID); err != nil {
				return fmt.Errorf("failed to pause fake request %s: %w", request.ID, err)
			}
			continue
		}

		placed, err := s.placeOffers(ctx, rng, request)
		if err != nil {
			return err
		}
		offers += len(placed)

		switch status {
		case types.RequestStatusAccepted:
			if len(placed) == 0 {
				continue
			}
			accepted := placed[rng.Intn(len(placed))]
			if _, err := s.Offers.AcceptOffer(ctx, request.ID, accepted.ID, customer.ID); err != nil {
				return fmt.Errorf("failed to accept fake offer %s: %w", accepted.ID, err)
			}
			if err := s.converse(ctx, rng, customer.ID, accepted); err != nil {
				return err
			}
		case types.RequestStatusClosed:
			if _, err := s.Requests.UpdateStatus(ctx, request.ID, status, customer.ID); err != nil {
				return fmt.Errorf("failed to close fake request %s: %w", request.ID, err)
			}
		}
	}

	fmt.Printf("Fake requests seeded: %d created, %d offers\n", created, offers)
	return nil
}

func (s *RequestSeeder) placeOffers(ctx context.Context, rng *rand.Rand, request *types.MovingRequest) ([]*types.Offer, error) {
	n := rng.Intn(len(Companies) + 1)
	picked := rng.Perm(len(Companies))[:n]

	placed := make([]*types.Offer, 0, n)
	for _, idx := range picked {
		company := Companies[idx]
		offer := &types.Offer{
			RequestID: request.ID,
			CompanyID: company.ID,
			Price:     float64(800 + rng.Intn(40)*100),
			Message:   fakeOfferMessages[rng.Intn(len(fakeOfferMessages))],
		}
		if err := s.Offers.CreateOffer(ctx, offer); err != nil {
			return nil, fmt.Errorf("failed to create fake offer for request %s: %w", request.ID, err)
		}
		placed = append(placed, offer)
	}

	return placed, nil
}

func (s *RequestSeeder) converse(ctx context.Context, rng *rand.Rand, customerID string, offer *types.Offer) error {
	if s.Chat == nil {
		return nil
	}

	n := 1 + rng.Intn(len(fakeChatMessages))
	for i := 0; i < n; i++ {
		role, sender := types.RoleCompany, offer.CompanyID
		if i%2 == 1 {
			role, sender = types.RoleCustomer, customerID
		}
		err := s.Chat.CreateMessage(ctx, &types.ChatMessage{
			OfferID:    offer.ID,
			RequestID:  offer.RequestID,
			SenderRole: role,
			SenderID:   sender,
			Body:       fakeChatMessages[i],
		})
		if err != nil {
			return fmt.Errorf("failed to create fake chat message for offer %s: %w", offer.ID, err)
		}
	}

	return nil
}

func fakeRequest(rng *rand.Rand, index *geo.Index, counties []string, customer fakeCustomerSeed, now time.Time) *types.MovingRequest {
	fromCounty := counties[rng.Intn(len(counties))]
	toCounty := counties[rng.Intn(len(counties))]
	rooms := []string{"1", "2", "3", "4+"}

	request := &types.MovingRequest{
		CustomerID:       customer.ID,
		FromCounty:       fromCounty,
		FromCity:         pickCity(rng, index, fromCounty),
		FromPropertyType: types.PropertyApartment,
		FromFloor:        fmt.Sprintf("%d", rng.Intn(10)),
		FromElevator:     rng.Intn(2) == 0,
		FromRooms:        rooms[rng.Intn(len(rooms))],
		ToCounty:         toCounty,
		ToCity:           pickCity(rng, index, toCounty),
		ToPropertyType:   types.PropertyHouse,
		ToRooms:          rooms[rng.Intn(len(rooms))],
		Services:         pickServices(rng),
		SurveyType:       types.SurveyQuickEstimate,
		MediaUpload:      types.MediaNone,
		Details:          seedMarker + fakeRequestDetails[rng.Intn(len(fakeRequestDetails))],
		ContactFirstName: customer.GivenName,
		ContactLastName:  customer.FamilyName,
		Phone:            customer.Phone,
		Email:            customer.Email,
	}

	moveDate := now.AddDate(0, 0, 7+rng.Intn(60))
	switch rng.Intn(3) {
	case 0:
		request.MoveDateMode = types.ScheduleModeExact
		request.MoveDate = utils.StringPtr(moveDate.Format(time.DateOnly))
	case 1:
		request.MoveDateMode = types.ScheduleModeRange
		request.MoveDateStart = utils.StringPtr(moveDate.Format(time.DateOnly))
		request.MoveDateEnd = utils.StringPtr(moveDate.AddDate(0, 0, 3+rng.Intn(10)).Format(time.DateOnly))
	default:
		request.MoveDateMode = types.ScheduleModeFlexible
		request.MoveDate = utils.StringPtr(moveDate.Format(time.DateOnly))
		request.MoveDateFlexDays = utils.IntPtr(1 + rng.Intn(7))
	}

	return request
}

func pickCity(rng *rand.Rand, index *geo.Index, county string) string {
	cities := index.Cities(county)
	if len(cities) == 0 {
		return county
	}
	return cities[rng.Intn(len(cities))]
}

func pickServices(rng *rand.Rand) []types.Service {
	services := []types.Service{types.ServiceMoving}
	for _, extra := range types.AllServices[1:] {
		if rng.Intn(4) == 0 {
			services = append(services, extra)
		}
	}
	return services
}

func pickWeightedStatus(rng *rand.Rand) types.RequestStatus {
	total := 0
	for _, ws := range weightedStatuses {
		total += ws.Weight
	}

	roll := rng.Intn(total)
	for _, ws := range weightedStatuses {
		if roll < ws.Weight {
			return ws.Status
		}
		roll -= ws.Weight
	}

	return types.RequestStatusActive
}

// ResetFakeRequests cancels every open seeded request. Requests are never
// deleted, so repeated seeding leaves cancelled rows behind.
func ResetFakeRequests(ctx context.Context, pool *pgxpool.Pool) error {
	result, err := pool.Exec(ctx, `UPDATE mutari.moving_requests SET status = 'cancelled', updated_at = now() WHERE details LIKE '[seed] %' AND status <> 'cancelled'`)
	if err != nil {
		return fmt.Errorf("failed to reset seeded fake requests: %w", err)
	}

	fmt.Printf("Reset seeded fake requests: %d cancelled\n", result.RowsAffected())
	return nil
}
