package types

import "time"

type ChatMessage struct {
	ID         string    `db:"id" json:"id"`
	OfferID    string    `db:"offer_id" json:"offerId"`
	RequestID  string    `db:"request_id" json:"requestId"`
	SenderRole Role      `db:"sender_role" json:"senderRole"`
	SenderID   string    `db:"sender_id" json:"senderId"`
	Body       string    `db:"body" json:"body"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// ReadMarker is the last time a role read an offer's chat.
type ReadMarker struct {
	OfferID    string    `db:"offer_id" json:"offerId"`
	Role       Role      `db:"role" json:"role"`
	LastReadAt time.Time `db:"last_read_at" json:"lastReadAt"`
}
