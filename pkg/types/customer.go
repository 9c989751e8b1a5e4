package types

import "time"

type Customer struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	GivenName   *string   `db:"given_name" json:"givenName,omitempty"`
	FamilyName  *string   `db:"family_name" json:"familyName,omitempty"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	IsGuest     bool      `db:"is_guest" json:"isGuest"`
	AuthSubject *string   `db:"auth_subject" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleCompany  Role = "company"
)

// Identity is the authenticated caller resolved from a bearer token.
// Subject is the token subject. UserID is the customer profile the subject
// is bound to, which is the subject itself until a guest profile is claimed.
type Identity struct {
	Subject   string
	UserID    string
	Email     string
	Role      Role
	CompanyID string
}
