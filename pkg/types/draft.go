package types

// Draft is the client-local working copy of a request before submission.
type Draft struct {
	Step int `json:"step"`

	From Address `json:"from"`
	To   Address `json:"to"`

	Services    []Service       `json:"services"`
	SurveyType  SurveyType      `json:"surveyType"`
	MediaUpload MediaPreference `json:"mediaUpload"`
	MediaURLs   []string        `json:"mediaUrls"`

	Schedule Schedule `json:"schedule"`
	Details  string   `json:"details"`

	Contact       Contact `json:"contact"`
	AcceptedTerms bool    `json:"acceptedTerms"`
}

// NewDraft returns a draft with defaults applied.
func NewDraft() *Draft {
	return &Draft{
		Services:    []Service{},
		MediaUpload: MediaNone,
		MediaURLs:   []string{},
		Schedule:    Schedule{Mode: ScheduleModeNone},
	}
}

// Payload flattens the draft into the guest submission body.
func (d *Draft) Payload() *GuestRequestPayload {
	p := &GuestRequestPayload{
		FromCounty:       d.From.County,
		FromCity:         d.From.City,
		FromStreet:       d.From.Street,
		FromPropertyType: d.From.PropertyType,
		FromFloor:        d.From.Floor,
		FromElevator:     d.From.Elevator,
		FromRooms:        d.From.Rooms,

		ToCounty:       d.To.County,
		ToCity:         d.To.City,
		ToStreet:       d.To.Street,
		ToPropertyType: d.To.PropertyType,
		ToFloor:        d.To.Floor,
		ToElevator:     d.To.Elevator,
		ToRooms:        d.To.Rooms,

		Services:    append([]Service{}, d.Services...),
		SurveyType:  d.SurveyType,
		MediaUpload: d.MediaUpload,
		MediaURLs:   append([]string{}, d.MediaURLs...),
		Details:     d.Details,

		MoveDateMode:     d.Schedule.Mode,
		MoveDate:         d.Schedule.Date,
		MoveDateStart:    d.Schedule.Start,
		MoveDateEnd:      d.Schedule.End,
		MoveDateFlexDays: d.Schedule.ToleranceDays,

		ContactFirstName: d.Contact.FirstName,
		ContactLastName:  d.Contact.LastName,
		Phone:            d.Contact.Phone,
		Email:            d.Contact.Email,
		AcceptedTerms:    d.AcceptedTerms,
	}

	if p.MoveDateMode == "" {
		p.MoveDateMode = ScheduleModeNone
	}
	if p.MediaUpload == "" {
		p.MediaUpload = MediaNone
	}

	return p
}

// Draft rebuilds the draft a payload was flattened from, positioned on the
// last step.
func (p *GuestRequestPayload) Draft(lastStep int) *Draft {
	d := NewDraft()
	d.Step = lastStep
	d.From = Address{
		County:       p.FromCounty,
		City:         p.FromCity,
		Street:       p.FromStreet,
		PropertyType: p.FromPropertyType,
		Floor:        p.FromFloor,
		Elevator:     p.FromElevator,
		Rooms:        p.FromRooms,
	}
	d.To = Address{
		County:       p.ToCounty,
		City:         p.ToCity,
		Street:       p.ToStreet,
		PropertyType: p.ToPropertyType,
		Floor:        p.ToFloor,
		Elevator:     p.ToElevator,
		Rooms:        p.ToRooms,
	}
	d.Services = append(d.Services, p.Services...)
	d.SurveyType = p.SurveyType
	if p.MediaUpload != "" {
		d.MediaUpload = p.MediaUpload
	}
	d.MediaURLs = append(d.MediaURLs, p.MediaURLs...)
	d.Schedule = Schedule{
		Mode:          p.MoveDateMode,
		Date:          p.MoveDate,
		Start:         p.MoveDateStart,
		End:           p.MoveDateEnd,
		ToleranceDays: p.MoveDateFlexDays,
	}
	if d.Schedule.Mode == "" {
		d.Schedule.Mode = ScheduleModeNone
	}
	d.Details = p.Details
	d.Contact = Contact{
		FirstName: p.ContactFirstName,
		LastName:  p.ContactLastName,
		Phone:     p.Phone,
		Email:     p.Email,
	}
	d.AcceptedTerms = p.AcceptedTerms
	return d
}
