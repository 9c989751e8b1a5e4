package types

import "errors"

var (
	ErrRequestNotFound      = errors.New("request not found")
	ErrOfferNotFound        = errors.New("offer not found")
	ErrCompanyNotFound      = errors.New("company not found")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrOfferAlreadyAccepted = errors.New("another offer is already accepted")
	ErrOfferNotPending      = errors.New("offer is no longer pending")
	ErrDraftNotFound        = errors.New("draft not found")
	ErrDraftTooLarge        = errors.New("draft too large to store")
	ErrUnavailable          = errors.New("backend temporarily unavailable")
	ErrRequestNotOpen       = errors.New("request is not accepting offers")
	ErrOfferExists          = errors.New("company already sent an offer for this request")
	ErrEmailTaken           = errors.New("email belongs to another account")
)
