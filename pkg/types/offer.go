package types

import "time"

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusDeclined OfferStatus = "declined"
)

// Offer is one company's priced bid against a request.
type Offer struct {
	ID           string      `db:"id" json:"id"`
	RequestID    string      `db:"request_id" json:"requestId"`
	CompanyID    string      `db:"company_id" json:"companyId"`
	CompanyName  string      `db:"company_name" json:"companyName"`
	CompanyEmail string      `db:"company_email" json:"companyEmail,omitempty"`
	CompanyPhone string      `db:"company_phone" json:"companyPhone,omitempty"`
	Price        float64     `db:"price" json:"price"`
	Message      string      `db:"message" json:"message,omitempty"`
	Status       OfferStatus `db:"status" json:"status"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
}

// AcceptedCount returns how many offers in the set are accepted.
func AcceptedCount(offers []*Offer) int {
	var n int
	for _, o := range offers {
		if o.Status == OfferStatusAccepted {
			n++
		}
	}
	return n
}

func PendingOffers(offers []*Offer) []*Offer {
	out := make([]*Offer, 0, len(offers))
	for _, o := range offers {
		if o.Status == OfferStatusPending {
			out = append(out, o)
		}
	}
	return out
}
