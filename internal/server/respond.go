package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"mutari/internal/store"
	"mutari/internal/wizard"
	"mutari/pkg/types"
)

const maxBodyBytes = 1 << 20

const (
	msgBadRequest  = "Cerere invalidă."
	msgForbidden   = "Nu ai acces la această resursă."
	msgInternal    = "A apărut o eroare. Te rugăm să încerci din nou."
	msgUnavailable = "Serviciul este temporar indisponibil. Te rugăm să încerci din nou în câteva momente."
)

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Service) writeData(w http.ResponseWriter, status int, data any) {
	s.writeJSON(w, status, types.Envelope[any]{Data: data})
}

func (s *Service) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, types.ErrorEnvelope{Error: types.ErrorBody{Code: code, Message: message}})
}

func (s *Service) writeValidation(w http.ResponseWriter, errs wizard.FieldErrors) {
	s.writeJSON(w, http.StatusBadRequest, types.ErrorEnvelope{Error: types.ErrorBody{
		Code:    "validation",
		Message: wizard.MsgValidation(errs),
		Fields:  errs.Map(),
	}})
}

// writeStoreError maps repository errors onto API responses. Anything it
// does not recognise is logged and reported as a 500.
func (s *Service) writeStoreError(w http.ResponseWriter, err error, msg string) {
	switch {
	case store.Unavailable(err):
		s.logger.WithError(err).Warn(msg)
		s.writeError(w, http.StatusServiceUnavailable, "unavailable", msgUnavailable)
	case errors.Is(err, types.ErrRequestNotFound):
		s.writeError(w, http.StatusNotFound, "not_found", "Cererea nu a fost găsită.")
	case errors.Is(err, types.ErrOfferNotFound):
		s.writeError(w, http.StatusNotFound, "not_found", "Oferta nu a fost găsită.")
	case errors.Is(err, types.ErrCustomerNotFound), errors.Is(err, types.ErrCompanyNotFound):
		s.writeError(w, http.StatusNotFound, "not_found", "Profilul nu a fost găsit.")
	case errors.Is(err, types.ErrInvalidTransition):
		s.writeError(w, http.StatusConflict, "invalid_transition", "Cererea nu poate trece în această stare.")
	case errors.Is(err, types.ErrOfferAlreadyAccepted):
		s.writeError(w, http.StatusConflict, "already_accepted", "Ai acceptat deja o ofertă pentru această cerere.")
	case errors.Is(err, types.ErrOfferNotPending):
		s.writeError(w, http.StatusConflict, "not_pending", "Oferta nu mai este în așteptare.")
	case errors.Is(err, types.ErrRequestNotOpen):
		s.writeError(w, http.StatusConflict, "request_not_open", "Cererea nu mai primește oferte.")
	case errors.Is(err, types.ErrOfferExists):
		s.writeError(w, http.StatusConflict, "offer_exists", "Ai trimis deja o ofertă pentru această cerere.")
	case errors.Is(err, types.ErrEmailTaken):
		s.writeError(w, http.StatusConflict, "email_taken", "Adresa de email aparține altui cont.")
	default:
		s.logger.WithError(err).Error(msg)
		s.writeError(w, http.StatusInternalServerError, "internal", msgInternal)
	}
}

// decodeJSON reads a JSON body into v and runs the struct validator. It
// writes the error response itself and reports whether the caller may
// continue.
func (s *Service) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.logger.WithError(err).Debug("failed to decode request body")
		s.writeError(w, http.StatusBadRequest, "bad_request", msgBadRequest)
		return false
	}

	if errs := s.validateStruct(v); len(errs) > 0 {
		s.writeValidation(w, errs)
		return false
	}

	return true
}
