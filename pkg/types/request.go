package types

import (
	"time"
)

type RequestStatus string

const (
	RequestStatusActive    RequestStatus = "active"
	RequestStatusPaused    RequestStatus = "paused"
	RequestStatusClosed    RequestStatus = "closed"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// FeedStatuses are the statuses a customer dashboard subscribes to.
var FeedStatuses = []RequestStatus{
	RequestStatusActive,
	RequestStatusPaused,
	RequestStatusClosed,
	RequestStatusAccepted,
}

// requestTransitions lists the allowed moves. Entering accepted also needs
// an accepted offer on the request; accepting an offer is the usual way in.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusActive:    {RequestStatusPaused, RequestStatusClosed, RequestStatusCancelled, RequestStatusAccepted},
	RequestStatusPaused:    {RequestStatusActive, RequestStatusClosed, RequestStatusCancelled},
	RequestStatusClosed:    {RequestStatusActive},
	RequestStatusAccepted:  {RequestStatusClosed, RequestStatusCancelled},
	RequestStatusCancelled: {},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to RequestStatus) bool {
	for _, s := range requestTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s RequestStatus) Valid() bool {
	_, ok := requestTransitions[s]
	return ok
}

// ParseRequestStatus normalizes stored status values, including the legacy
// pending/in-progress/completed vocabulary.
func ParseRequestStatus(v string) (RequestStatus, bool) {
	switch v {
	case "pending":
		return RequestStatusActive, true
	case "in-progress", "in_progress":
		return RequestStatusAccepted, true
	case "completed":
		return RequestStatusClosed, true
	}

	s := RequestStatus(v)
	return s, s.Valid()
}

type ScheduleMode string

const (
	ScheduleModeNone     ScheduleMode = "none"
	ScheduleModeExact    ScheduleMode = "exact"
	ScheduleModeRange    ScheduleMode = "range"
	ScheduleModeFlexible ScheduleMode = "flexible"
)

func (m ScheduleMode) Valid() bool {
	switch m {
	case ScheduleModeNone, ScheduleModeExact, ScheduleModeRange, ScheduleModeFlexible:
		return true
	}
	return false
}

type Service string

const (
	ServiceMoving        Service = "moving"
	ServicePacking       Service = "packing"
	ServiceDisassembly   Service = "disassembly"
	ServiceCleanout      Service = "cleanout"
	ServiceStorage       Service = "storage"
	ServiceTransportOnly Service = "transport_only"
	ServicePiano         Service = "piano"
	ServiceFewItems      Service = "few_items"
)

var AllServices = []Service{
	ServiceMoving,
	ServicePacking,
	ServiceDisassembly,
	ServiceCleanout,
	ServiceStorage,
	ServiceTransportOnly,
	ServicePiano,
	ServiceFewItems,
}

func (s Service) Valid() bool {
	for _, v := range AllServices {
		if v == s {
			return true
		}
	}
	return false
}

type SurveyType string

const (
	SurveyInPerson      SurveyType = "in_person"
	SurveyVideo         SurveyType = "video"
	SurveyQuickEstimate SurveyType = "quick_estimate"
)

func (s SurveyType) Valid() bool {
	switch s {
	case SurveyInPerson, SurveyVideo, SurveyQuickEstimate:
		return true
	}
	return false
}

type MediaPreference string

const (
	MediaNone  MediaPreference = "none"
	MediaNow   MediaPreference = "now"
	MediaLater MediaPreference = "later"
)

type PropertyType string

const (
	PropertyApartment PropertyType = "apartment"
	PropertyHouse     PropertyType = "house"
	PropertyOffice    PropertyType = "office"
	PropertyStorage   PropertyType = "storage"
)

// Address is one end of a move. Rooms is kept as entered ("1", "2", "4+").
type Address struct {
	County       string       `json:"county"`
	City         string       `json:"city"`
	Street       string       `json:"street,omitempty"`
	PropertyType PropertyType `json:"propertyType,omitempty"`
	Floor        string       `json:"floor,omitempty"`
	Elevator     bool         `json:"elevator"`
	Rooms        string       `json:"rooms"`
}

type Schedule struct {
	Mode          ScheduleMode `json:"moveDateMode"`
	Date          string       `json:"moveDate,omitempty"`
	Start         string       `json:"moveDateStart,omitempty"`
	End           string       `json:"moveDateEnd,omitempty"`
	ToleranceDays int          `json:"moveDateFlexDays,omitempty"`
}

type Contact struct {
	FirstName string `json:"contactFirstName"`
	LastName  string `json:"contactLastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// MovingRequest is a customer's move awaiting offers.
type MovingRequest struct {
	ID          string  `db:"id" json:"id"`
	CustomerID  string  `db:"customer_id" json:"customerId"`
	RequestCode *string `db:"request_code" json:"requestCode,omitempty"`

	FromCounty       string       `db:"from_county" json:"fromCounty"`
	FromCity         string       `db:"from_city" json:"fromCity"`
	FromStreet       string       `db:"from_street" json:"fromStreet,omitempty"`
	FromPropertyType PropertyType `db:"from_property_type" json:"fromPropertyType,omitempty"`
	FromFloor        string       `db:"from_floor" json:"fromFloor,omitempty"`
	FromElevator     bool         `db:"from_elevator" json:"fromElevator"`
	FromRooms        string       `db:"from_rooms" json:"fromRooms"`

	ToCounty       string       `db:"to_county" json:"toCounty"`
	ToCity         string       `db:"to_city" json:"toCity"`
	ToStreet       string       `db:"to_street" json:"toStreet,omitempty"`
	ToPropertyType PropertyType `db:"to_property_type" json:"toPropertyType,omitempty"`
	ToFloor        string       `db:"to_floor" json:"toFloor,omitempty"`
	ToElevator     bool         `db:"to_elevator" json:"toElevator"`
	ToRooms        string       `db:"to_rooms" json:"toRooms"`

	MoveDateMode     ScheduleMode `db:"move_date_mode" json:"moveDateMode"`
	MoveDate         *string      `db:"move_date" json:"moveDate,omitempty"`
	MoveDateStart    *string      `db:"move_date_start" json:"moveDateStart,omitempty"`
	MoveDateEnd      *string      `db:"move_date_end" json:"moveDateEnd,omitempty"`
	MoveDateFlexDays *int         `db:"move_date_flex_days" json:"moveDateFlexDays,omitempty"`

	Services    []Service       `db:"services" json:"services"`
	SurveyType  SurveyType      `db:"survey_type" json:"surveyType"`
	MediaUpload MediaPreference `db:"media_upload" json:"mediaUpload"`
	MediaURLs   []string        `db:"media_urls" json:"mediaUrls"`
	Details     string          `db:"details" json:"details,omitempty"`

	ContactFirstName string `db:"contact_first_name" json:"contactFirstName"`
	ContactLastName  string `db:"contact_last_name" json:"contactLastName"`
	Phone            string `db:"phone" json:"phone"`
	Email            string `db:"email" json:"email"`

	Status    RequestStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `db:"updated_at" json:"updatedAt"`
}

func (r *MovingRequest) Code() string {
	if r.RequestCode == nil {
		return ""
	}
	return *r.RequestCode
}

func (r *MovingRequest) ContactName() string {
	if r.ContactLastName == "" {
		return r.ContactFirstName
	}
	return r.ContactFirstName + " " + r.ContactLastName
}

// RequestEvent records a status change on a request.
type RequestEvent struct {
	ID         string        `db:"id"`
	RequestID  string        `db:"request_id"`
	FromStatus RequestStatus `db:"from_status"`
	ToStatus   RequestStatus `db:"to_status"`
	Actor      string        `db:"actor"`
	CreatedAt  time.Time     `db:"created_at"`
}
