package types

// GuestRequestPayload is the body of POST /api/requests/createGuest.
type GuestRequestPayload struct {
	FromCounty       string       `json:"fromCounty" validate:"required"`
	FromCity         string       `json:"fromCity" validate:"required"`
	FromStreet       string       `json:"fromStreet,omitempty"`
	FromPropertyType PropertyType `json:"fromPropertyType,omitempty"`
	FromFloor        string       `json:"fromFloor,omitempty"`
	FromElevator     bool         `json:"fromElevator"`
	FromRooms        string       `json:"fromRooms" validate:"required"`

	ToCounty       string       `json:"toCounty" validate:"required"`
	ToCity         string       `json:"toCity" validate:"required"`
	ToStreet       string       `json:"toStreet,omitempty"`
	ToPropertyType PropertyType `json:"toPropertyType,omitempty"`
	ToFloor        string       `json:"toFloor,omitempty"`
	ToElevator     bool         `json:"toElevator"`
	ToRooms        string       `json:"toRooms" validate:"required"`

	Services    []Service       `json:"services" validate:"dive,service"`
	SurveyType  SurveyType      `json:"surveyType,omitempty" validate:"omitempty,survey"`
	MediaUpload MediaPreference `json:"mediaUpload,omitempty"`
	MediaURLs   []string        `json:"mediaUrls,omitempty" validate:"max=10,dive,url"`
	Details     string          `json:"details,omitempty" validate:"max=4000"`

	MoveDateMode     ScheduleMode `json:"moveDateMode" validate:"required,oneof=none exact range flexible"`
	MoveDate         string       `json:"moveDate,omitempty"`
	MoveDateStart    string       `json:"moveDateStart,omitempty"`
	MoveDateEnd      string       `json:"moveDateEnd,omitempty"`
	MoveDateFlexDays int          `json:"moveDateFlexDays,omitempty" validate:"gte=0,lte=30"`

	ContactFirstName string `json:"contactFirstName" validate:"required"`
	ContactLastName  string `json:"contactLastName" validate:"required"`
	Phone            string `json:"phone" validate:"required,ro_phone"`
	Email            string `json:"email" validate:"required,email"`
	AcceptedTerms    bool   `json:"acceptedTerms" validate:"eq=true"`
}

type UpdateMediaPayload struct {
	RequestID string   `json:"requestId" validate:"required"`
	MediaURLs []string `json:"mediaUrls" validate:"dive,required"`
}

type UpdateStatusPayload struct {
	RequestID string        `json:"requestId" validate:"required"`
	Status    RequestStatus `json:"status" validate:"required,oneof=active closed paused accepted cancelled"`
}

type OfferActionPayload struct {
	RequestID string `json:"requestId" validate:"required"`
	OfferID   string `json:"offerId" validate:"required"`
}

type CreateOfferPayload struct {
	RequestID string  `json:"requestId" validate:"required"`
	Price     float64 `json:"price" validate:"gt=0"`
	Message   string  `json:"message" validate:"max=2000"`
}

type ChatMessagePayload struct {
	OfferID string `json:"offerId" validate:"required"`
	Body    string `json:"body" validate:"required,max=4000"`
}

type MarkReadPayload struct {
	OfferID string `json:"offerId" validate:"required"`
}

type EnsureCustomerPayload struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	Phone      string `json:"phone"`
}

type CreateGuestResult struct {
	RequestCode string `json:"requestCode"`
	RequestID   string `json:"requestId,omitempty"`
}

// Envelope wraps every successful API response.
type Envelope[T any] struct {
	Data T `json:"data"`
}

type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
