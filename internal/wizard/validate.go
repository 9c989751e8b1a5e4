package wizard

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"mutari/pkg/types"
)

const (
	MsgCountyRequired    = "Selectează județul."
	MsgCityRequired      = "Selectează localitatea."
	MsgRoomsRequired     = "Selectează numărul de camere."
	MsgPropertyInvalid   = "Tip de proprietate invalid."
	MsgServiceInvalid    = "Serviciu invalid."
	MsgSurveyInvalid     = "Tip de evaluare invalid."
	MsgScheduleInvalid   = "Alege cum vrei să programezi mutarea."
	MsgDateRequired      = "Alege data mutării."
	MsgDateInvalid       = "Dată invalidă."
	MsgRangeRequired     = "Alege intervalul de mutare."
	MsgRangeOrder        = "Data de final trebuie să fie după data de început."
	MsgFlexDaysInvalid   = "Alege între 1 și 30 de zile de flexibilitate."
	MsgFirstNameRequired = "Completează prenumele."
	MsgLastNameRequired  = "Completează numele."
	MsgPhoneRequired     = "Completează numărul de telefon."
	MsgPhoneInvalid      = "Format telefon invalid."
	MsgEmailRequired     = "Completează adresa de email."
	MsgEmailInvalid      = "Adresă de email invalidă."
	MsgTermsRequired     = "Trebuie să accepți termenii și condițiile."
	MsgStepAhead         = "Completează mai întâi pașii anteriori."
	MsgFinalStep         = "Ultimul pas se trimite, nu se avansează."
	MsgDetailsTooLong    = "Descrierea poate avea cel mult 4000 de caractere."
	MsgTooManyMedia      = "Poți adăuga cel mult 10 fotografii."
	MsgDraftTooLarge     = "Cererea este prea lungă pentru a fi salvată. Scurtează descrierea."

	MaxFlexDays      = 30
	MaxDetailsLength = 4000
	MaxMediaURLs     = 10
	DateLayout       = "2006-01-02"
)

var phonePattern = regexp.MustCompile(`^(07\d{8}|\+407\d{8})$`)

// FieldError is one inline validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors is the result of a failed validation. It is nil when valid.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, len(fe))
	for i, e := range fe {
		msgs[i] = e.Field + ": " + e.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (fe FieldErrors) Has(field string) bool {
	for _, e := range fe {
		if e.Field == field {
			return true
		}
	}
	return false
}

// UserMessage is the toast shown for errs.
func (fe FieldErrors) UserMessage() string {
	return MsgValidation(fe)
}

// Map returns the first message per field, the shape form templates expect.
func (fe FieldErrors) Map() map[string]string {
	out := make(map[string]string, len(fe))
	for _, e := range fe {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

func (fe *FieldErrors) add(field, msg string) {
	*fe = append(*fe, FieldError{Field: field, Message: msg})
}

// NormalizePhone drops spaces, dots, dashes and parentheses.
func NormalizePhone(p string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(p))
}

// ValidPhone accepts Romanian mobile numbers, 07xxxxxxxx or +407xxxxxxxx.
func ValidPhone(p string) bool {
	return phonePattern.MatchString(NormalizePhone(p))
}

func ValidEmail(e string) bool {
	e = strings.TrimSpace(e)
	addr, err := mail.ParseAddress(e)
	if err != nil {
		return false
	}
	return addr.Address == e && strings.Contains(e[strings.LastIndex(e, "@"):], ".")
}

// ValidateStep checks the fields owned by one step.
func ValidateStep(d *types.Draft, step Step) FieldErrors {
	var errs FieldErrors

	switch step {
	case StepOrigin:
		validateAddress(&errs, "from", d.From)
	case StepDestination:
		validateAddress(&errs, "to", d.To)
	case StepServices:
		for _, s := range d.Services {
			if !s.Valid() {
				errs.add("services", MsgServiceInvalid)
				break
			}
		}
		if d.SurveyType != "" && !d.SurveyType.Valid() {
			errs.add("surveyType", MsgSurveyInvalid)
		}
		SetMediaURLs(d.MediaURLs).check(&errs)
	case StepSchedule:
		validateSchedule(&errs, d.Schedule)
		SetDetails(d.Details).check(&errs)
	case StepContact:
		validateContact(&errs, d)
	}

	return errs
}

// Validate runs every step's checks. Used before submission.
func Validate(d *types.Draft) FieldErrors {
	var errs FieldErrors
	for _, step := range Steps() {
		errs = append(errs, ValidateStep(d, step)...)
	}
	return errs
}

func validateAddress(errs *FieldErrors, prefix string, a types.Address) {
	if strings.TrimSpace(a.County) == "" {
		errs.add(prefix+"County", MsgCountyRequired)
	}
	if strings.TrimSpace(a.City) == "" {
		errs.add(prefix+"City", MsgCityRequired)
	}
	if strings.TrimSpace(a.Rooms) == "" {
		errs.add(prefix+"Rooms", MsgRoomsRequired)
	}

	switch a.PropertyType {
	case "", types.PropertyApartment, types.PropertyHouse, types.PropertyOffice, types.PropertyStorage:
	default:
		errs.add(prefix+"PropertyType", MsgPropertyInvalid)
	}
}

func validateSchedule(errs *FieldErrors, s types.Schedule) {
	switch s.Mode {
	case "", types.ScheduleModeNone:
	case types.ScheduleModeExact:
		checkDate(errs, "moveDate", s.Date, MsgDateRequired)
	case types.ScheduleModeRange:
		start, okStart := checkDate(errs, "moveDateStart", s.Start, MsgRangeRequired)
		end, okEnd := checkDate(errs, "moveDateEnd", s.End, MsgRangeRequired)
		if okStart && okEnd && end.Before(start) {
			errs.add("moveDateEnd", MsgRangeOrder)
		}
	case types.ScheduleModeFlexible:
		checkDate(errs, "moveDate", s.Date, MsgDateRequired)
		if s.ToleranceDays < 1 || s.ToleranceDays > MaxFlexDays {
			errs.add("moveDateFlexDays", MsgFlexDaysInvalid)
		}
	default:
		errs.add("moveDateMode", MsgScheduleInvalid)
	}
}

func checkDate(errs *FieldErrors, field, value, missing string) (time.Time, bool) {
	if strings.TrimSpace(value) == "" {
		errs.add(field, missing)
		return time.Time{}, false
	}

	t, err := time.Parse(DateLayout, value)
	if err != nil {
		errs.add(field, MsgDateInvalid)
		return time.Time{}, false
	}
	return t, true
}

func validateContact(errs *FieldErrors, d *types.Draft) {
	c := d.Contact

	if strings.TrimSpace(c.FirstName) == "" {
		errs.add("contactFirstName", MsgFirstNameRequired)
	}
	if strings.TrimSpace(c.LastName) == "" {
		errs.add("contactLastName", MsgLastNameRequired)
	}

	switch {
	case strings.TrimSpace(c.Phone) == "":
		errs.add("phone", MsgPhoneRequired)
	case !ValidPhone(c.Phone):
		errs.add("phone", MsgPhoneInvalid)
	}

	switch {
	case strings.TrimSpace(c.Email) == "":
		errs.add("email", MsgEmailRequired)
	case !ValidEmail(c.Email):
		errs.add("email", MsgEmailInvalid)
	}

	if !d.AcceptedTerms {
		errs.add("acceptedTerms", MsgTermsRequired)
	}
}
