package server

import (
	"errors"
	"reflect"
	"strings"

	"mutari/internal/wizard"
	"mutari/pkg/types"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("ro_phone", func(fl validator.FieldLevel) bool {
		return wizard.ValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("service", func(fl validator.FieldLevel) bool {
		return types.Service(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("survey", func(fl validator.FieldLevel) bool {
		return types.SurveyType(fl.Field().String()).Valid()
	})

	return v
}

// validateStruct runs the tag rules and reports failures with the same
// messages the intake form shows.
func (s *Service) validateStruct(v any) wizard.FieldErrors {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return wizard.FieldErrors{{Field: "", Message: msgBadRequest}}
	}

	out := make(wizard.FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if i := strings.IndexByte(field, '['); i > 0 {
			field = field[:i]
		}
		out = append(out, wizard.FieldError{Field: field, Message: fieldMessage(field, fe.Tag())})
	}
	return out
}

var requiredMessages = map[string]string{
	"fromCounty":       wizard.MsgCountyRequired,
	"toCounty":         wizard.MsgCountyRequired,
	"fromCity":         wizard.MsgCityRequired,
	"toCity":           wizard.MsgCityRequired,
	"fromRooms":        wizard.MsgRoomsRequired,
	"toRooms":          wizard.MsgRoomsRequired,
	"contactFirstName": wizard.MsgFirstNameRequired,
	"contactLastName":  wizard.MsgLastNameRequired,
	"phone":            wizard.MsgPhoneRequired,
	"email":            wizard.MsgEmailRequired,
	"moveDateMode":     wizard.MsgScheduleInvalid,
	"acceptedTerms":    wizard.MsgTermsRequired,
}

func fieldMessage(field, tag string) string {
	switch tag {
	case "ro_phone":
		return wizard.MsgPhoneInvalid
	case "email":
		return wizard.MsgEmailInvalid
	case "service":
		return wizard.MsgServiceInvalid
	case "survey":
		return wizard.MsgSurveyInvalid
	case "oneof":
		if field == "moveDateMode" {
			return wizard.MsgScheduleInvalid
		}
		return msgBadRequest
	case "gte", "lte":
		if field == "moveDateFlexDays" {
			return wizard.MsgFlexDaysInvalid
		}
	case "max":
		switch field {
		case "details":
			return wizard.MsgDetailsTooLong
		case "mediaUrls":
			return wizard.MsgTooManyMedia
		}
	case "required", "eq":
		if msg, ok := requiredMessages[field]; ok {
			return msg
		}
	}
	return msgBadRequest
}
