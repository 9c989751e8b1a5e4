package wizard

import (
	"unicode/utf8"

	"mutari/pkg/types"
)

// Update is one change to the draft. Each update belongs to exactly one
// step and only touches that step's fields.
type Update interface {
	Step() Step
	apply(d *types.Draft)
}

// bounded updates refuse values too large to keep in a draft.
type bounded interface {
	check(errs *FieldErrors)
}

// Origin

type SetFromCounty string
type SetFromCity string
type SetFromStreet string
type SetFromPropertyType types.PropertyType
type SetFromFloor string
type SetFromElevator bool
type SetFromRooms string

func (SetFromCounty) Step() Step       { return StepOrigin }
func (SetFromCity) Step() Step         { return StepOrigin }
func (SetFromStreet) Step() Step       { return StepOrigin }
func (SetFromPropertyType) Step() Step { return StepOrigin }
func (SetFromFloor) Step() Step        { return StepOrigin }
func (SetFromElevator) Step() Step     { return StepOrigin }
func (SetFromRooms) Step() Step        { return StepOrigin }

func (u SetFromCounty) apply(d *types.Draft)       { setCounty(&d.From, string(u)) }
func (u SetFromCity) apply(d *types.Draft)         { d.From.City = string(u) }
func (u SetFromStreet) apply(d *types.Draft)       { d.From.Street = string(u) }
func (u SetFromPropertyType) apply(d *types.Draft) { d.From.PropertyType = types.PropertyType(u) }
func (u SetFromFloor) apply(d *types.Draft)        { d.From.Floor = string(u) }
func (u SetFromElevator) apply(d *types.Draft)     { d.From.Elevator = bool(u) }
func (u SetFromRooms) apply(d *types.Draft)        { d.From.Rooms = string(u) }

// Destination

type SetToCounty string
type SetToCity string
type SetToStreet string
type SetToPropertyType types.PropertyType
type SetToFloor string
type SetToElevator bool
type SetToRooms string

func (SetToCounty) Step() Step       { return StepDestination }
func (SetToCity) Step() Step         { return StepDestination }
func (SetToStreet) Step() Step       { return StepDestination }
func (SetToPropertyType) Step() Step { return StepDestination }
func (SetToFloor) Step() Step        { return StepDestination }
func (SetToElevator) Step() Step     { return StepDestination }
func (SetToRooms) Step() Step        { return StepDestination }

func (u SetToCounty) apply(d *types.Draft)       { setCounty(&d.To, string(u)) }
func (u SetToCity) apply(d *types.Draft)         { d.To.City = string(u) }
func (u SetToStreet) apply(d *types.Draft)       { d.To.Street = string(u) }
func (u SetToPropertyType) apply(d *types.Draft) { d.To.PropertyType = types.PropertyType(u) }
func (u SetToFloor) apply(d *types.Draft)        { d.To.Floor = string(u) }
func (u SetToElevator) apply(d *types.Draft)     { d.To.Elevator = bool(u) }
func (u SetToRooms) apply(d *types.Draft)        { d.To.Rooms = string(u) }

// a different county invalidates the chosen city
func setCounty(a *types.Address, county string) {
	if a.County != county {
		a.City = ""
	}
	a.County = county
}

// Services, survey and media

type SetServices []types.Service

type ToggleService struct {
	Service types.Service
	On      bool
}

type SetSurveyType types.SurveyType
type SetMediaUpload types.MediaPreference
type SetMediaURLs []string

func (SetServices) Step() Step    { return StepServices }
func (ToggleService) Step() Step  { return StepServices }
func (SetSurveyType) Step() Step  { return StepServices }
func (SetMediaUpload) Step() Step { return StepServices }
func (SetMediaURLs) Step() Step   { return StepServices }

func (u SetServices) apply(d *types.Draft) {
	d.Services = make([]types.Service, 0, len(u))
	for _, s := range u {
		d.Services = appendUnique(d.Services, s)
	}
}

func (u ToggleService) apply(d *types.Draft) {
	if u.On {
		d.Services = appendUnique(d.Services, u.Service)
		return
	}

	out := d.Services[:0:0]
	for _, s := range d.Services {
		if s != u.Service {
			out = append(out, s)
		}
	}
	d.Services = out
}

func (u SetSurveyType) apply(d *types.Draft) { d.SurveyType = types.SurveyType(u) }

func (u SetMediaUpload) apply(d *types.Draft) {
	d.MediaUpload = types.MediaPreference(u)
	if d.MediaUpload != types.MediaNow {
		d.MediaURLs = []string{}
	}
}

func (u SetMediaURLs) apply(d *types.Draft) { d.MediaURLs = append([]string{}, u...) }

func (u SetMediaURLs) check(errs *FieldErrors) {
	if len(u) > MaxMediaURLs {
		errs.add("mediaUrls", MsgTooManyMedia)
	}
}

func appendUnique(list []types.Service, s types.Service) []types.Service {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// Schedule and details

type SetScheduleMode types.ScheduleMode
type SetMoveDate string
type SetMoveDateStart string
type SetMoveDateEnd string
type SetFlexDays int
type SetDetails string

func (SetScheduleMode) Step() Step  { return StepSchedule }
func (SetMoveDate) Step() Step      { return StepSchedule }
func (SetMoveDateStart) Step() Step { return StepSchedule }
func (SetMoveDateEnd) Step() Step   { return StepSchedule }
func (SetFlexDays) Step() Step      { return StepSchedule }
func (SetDetails) Step() Step       { return StepSchedule }

// Switching modes drops every date field the new mode does not use.
func (u SetScheduleMode) apply(d *types.Draft) {
	mode := types.ScheduleMode(u)
	s := &d.Schedule
	s.Mode = mode

	switch mode {
	case types.ScheduleModeExact:
		s.Start, s.End, s.ToleranceDays = "", "", 0
	case types.ScheduleModeRange:
		s.Date, s.ToleranceDays = "", 0
	case types.ScheduleModeFlexible:
		s.Start, s.End = "", ""
	default:
		s.Date, s.Start, s.End, s.ToleranceDays = "", "", "", 0
	}
}

// Date setters only land when the active mode uses the field.

func (u SetMoveDate) apply(d *types.Draft) {
	if m := d.Schedule.Mode; m == types.ScheduleModeExact || m == types.ScheduleModeFlexible {
		d.Schedule.Date = string(u)
	}
}

func (u SetMoveDateStart) apply(d *types.Draft) {
	if d.Schedule.Mode == types.ScheduleModeRange {
		d.Schedule.Start = string(u)
	}
}

func (u SetMoveDateEnd) apply(d *types.Draft) {
	if d.Schedule.Mode == types.ScheduleModeRange {
		d.Schedule.End = string(u)
	}
}

func (u SetFlexDays) apply(d *types.Draft) {
	if d.Schedule.Mode == types.ScheduleModeFlexible {
		d.Schedule.ToleranceDays = int(u)
	}
}

func (u SetDetails) apply(d *types.Draft) { d.Details = string(u) }

func (u SetDetails) check(errs *FieldErrors) {
	if utf8.RuneCountInString(string(u)) > MaxDetailsLength {
		errs.add("details", MsgDetailsTooLong)
	}
}

// Contact

type SetContactFirstName string
type SetContactLastName string
type SetPhone string
type SetEmail string
type SetAcceptedTerms bool

func (SetContactFirstName) Step() Step { return StepContact }
func (SetContactLastName) Step() Step  { return StepContact }
func (SetPhone) Step() Step            { return StepContact }
func (SetEmail) Step() Step            { return StepContact }
func (SetAcceptedTerms) Step() Step    { return StepContact }

func (u SetContactFirstName) apply(d *types.Draft) { d.Contact.FirstName = string(u) }
func (u SetContactLastName) apply(d *types.Draft)  { d.Contact.LastName = string(u) }
func (u SetPhone) apply(d *types.Draft)            { d.Contact.Phone = string(u) }
func (u SetEmail) apply(d *types.Draft)            { d.Contact.Email = string(u) }
func (u SetAcceptedTerms) apply(d *types.Draft)    { d.AcceptedTerms = bool(u) }
