package wizard

import (
	"fmt"
	"net/url"

	"mutari/pkg/types"

	"github.com/go-playground/form/v4"
)

var decoder = form.NewDecoder()

// Pointer fields stay nil when the form omits them, so a partial post only
// touches the fields it carries.

type addressForm struct {
	County       *string `form:"county"`
	City         *string `form:"city"`
	Street       *string `form:"street"`
	PropertyType *string `form:"property_type"`
	Floor        *string `form:"floor"`
	Elevator     *bool   `form:"elevator"`
	Rooms        *string `form:"rooms"`
}

type servicesForm struct {
	Services    []string `form:"services"`
	SurveyType  *string  `form:"survey_type"`
	MediaUpload *string  `form:"media_upload"`
}

type scheduleForm struct {
	Mode     *string `form:"move_date_mode"`
	Date     *string `form:"move_date"`
	Start    *string `form:"move_date_start"`
	End      *string `form:"move_date_end"`
	FlexDays *int    `form:"move_date_flex_days"`
	Details  *string `form:"details"`
}

type contactForm struct {
	FirstName     *string `form:"first_name"`
	LastName      *string `form:"last_name"`
	Phone         *string `form:"phone"`
	Email         *string `form:"email"`
	AcceptedTerms *bool   `form:"accepted_terms"`
}

// DecodeStepForm turns a posted form for one step into updates.
func DecodeStepForm(step Step, values url.Values) ([]Update, error) {
	var updates []Update

	switch step {
	case StepOrigin, StepDestination:
		f := new(addressForm)
		if err := decoder.Decode(f, values); err != nil {
			return nil, fmt.Errorf("failed to decode %s form: %w", step, err)
		}
		if step == StepOrigin {
			updates = originUpdates(f)
		} else {
			updates = destinationUpdates(f)
		}

	case StepServices:
		f := new(servicesForm)
		if err := decoder.Decode(f, values); err != nil {
			return nil, fmt.Errorf("failed to decode services form: %w", err)
		}
		if values.Has("services") {
			services := make(SetServices, 0, len(f.Services))
			for _, s := range f.Services {
				services = append(services, types.Service(s))
			}
			updates = append(updates, services)
		}
		if f.SurveyType != nil {
			updates = append(updates, SetSurveyType(*f.SurveyType))
		}
		if f.MediaUpload != nil {
			updates = append(updates, SetMediaUpload(*f.MediaUpload))
		}

	case StepSchedule:
		f := new(scheduleForm)
		if err := decoder.Decode(f, values); err != nil {
			return nil, fmt.Errorf("failed to decode schedule form: %w", err)
		}
		// mode first, it clears the fields of the previous mode
		if f.Mode != nil {
			updates = append(updates, SetScheduleMode(*f.Mode))
		}
		if f.Date != nil {
			updates = append(updates, SetMoveDate(*f.Date))
		}
		if f.Start != nil {
			updates = append(updates, SetMoveDateStart(*f.Start))
		}
		if f.End != nil {
			updates = append(updates, SetMoveDateEnd(*f.End))
		}
		if f.FlexDays != nil {
			updates = append(updates, SetFlexDays(*f.FlexDays))
		}
		if f.Details != nil {
			updates = append(updates, SetDetails(*f.Details))
		}

	case StepContact:
		f := new(contactForm)
		if err := decoder.Decode(f, values); err != nil {
			return nil, fmt.Errorf("failed to decode contact form: %w", err)
		}
		if f.FirstName != nil {
			updates = append(updates, SetContactFirstName(*f.FirstName))
		}
		if f.LastName != nil {
			updates = append(updates, SetContactLastName(*f.LastName))
		}
		if f.Phone != nil {
			updates = append(updates, SetPhone(*f.Phone))
		}
		if f.Email != nil {
			updates = append(updates, SetEmail(*f.Email))
		}
		if f.AcceptedTerms != nil {
			updates = append(updates, SetAcceptedTerms(*f.AcceptedTerms))
		}

	default:
		return nil, fmt.Errorf("unknown step %d", int(step))
	}

	return updates, nil
}

func originUpdates(f *addressForm) []Update {
	var u []Update
	if f.County != nil {
		u = append(u, SetFromCounty(*f.County))
	}
	if f.City != nil {
		u = append(u, SetFromCity(*f.City))
	}
	if f.Street != nil {
		u = append(u, SetFromStreet(*f.Street))
	}
	if f.PropertyType != nil {
		u = append(u, SetFromPropertyType(*f.PropertyType))
	}
	if f.Floor != nil {
		u = append(u, SetFromFloor(*f.Floor))
	}
	if f.Elevator != nil {
		u = append(u, SetFromElevator(*f.Elevator))
	}
	if f.Rooms != nil {
		u = append(u, SetFromRooms(*f.Rooms))
	}
	return u
}

func destinationUpdates(f *addressForm) []Update {
	var u []Update
	if f.County != nil {
		u = append(u, SetToCounty(*f.County))
	}
	if f.City != nil {
		u = append(u, SetToCity(*f.City))
	}
	if f.Street != nil {
		u = append(u, SetToStreet(*f.Street))
	}
	if f.PropertyType != nil {
		u = append(u, SetToPropertyType(*f.PropertyType))
	}
	if f.Floor != nil {
		u = append(u, SetToFloor(*f.Floor))
	}
	if f.Elevator != nil {
		u = append(u, SetToElevator(*f.Elevator))
	}
	if f.Rooms != nil {
		u = append(u, SetToRooms(*f.Rooms))
	}
	return u
}
