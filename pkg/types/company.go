package types

import "time"

type Company struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Email       string    `db:"email" json:"email"`
	Phone       string    `db:"phone" json:"phone"`
	City        string    `db:"city" json:"city"`
	Rating      float64   `db:"rating" json:"rating"`
	ReviewCount int       `db:"review_count" json:"reviewCount"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
