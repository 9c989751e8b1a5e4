package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"mutari/internal/draftstore"
	"mutari/internal/notice"
	"mutari/internal/utils"
	"mutari/internal/wizard"
	"mutari/pkg/types"
)

const draftIDCookie = "mutari_draft_id"

// intakeState is what every intake endpoint answers with.
type intakeState struct {
	Step        string            `json:"step"`
	Draft       *types.Draft      `json:"draft"`
	Errors      map[string]string `json:"errors,omitempty"`
	Notices     []notice.Notice   `json:"notices"`
	RequestCode string            `json:"requestCode,omitempty"`
}

// intakeSubmitter writes finished drafts straight through the store.
type intakeSubmitter struct {
	s        *Service
	identity *types.Identity
}

func (is *intakeSubmitter) CreateGuest(ctx context.Context, payload *types.GuestRequestPayload) (string, error) {
	if errs := is.s.validateStruct(payload); len(errs) > 0 {
		return "", errs
	}

	result, err := is.s.createRequest(ctx, is.identity, payload)
	if err != nil {
		return "", err
	}
	return result.RequestCode, nil
}

// machine restores the caller's wizard from its draft store. Notices the
// machine raises land in the returned recorder.
func (s *Service) machine(w http.ResponseWriter, r *http.Request) (*wizard.Machine, *notice.Recorder, error) {
	identity, _ := identityFrom(r.Context())
	recorder := new(notice.Recorder)

	m, err := wizard.New(r.Context(), s.draftStore(w, r), &intakeSubmitter{s: s, identity: identity}, recorder, s.logger)
	if err != nil {
		return nil, nil, err
	}
	return m, recorder, nil
}

// draftStore keeps drafts in the encrypted cookie itself, or in Redis under
// an id carried by a signed cookie.
func (s *Service) draftStore(w http.ResponseWriter, r *http.Request) wizard.DraftStore {
	maxAge := s.config.DraftMaxAgeSec

	if s.config.DraftBackend != "redis" || s.redis == nil {
		return draftstore.NewCookieStore(s.cookie, s.config.DraftCookieName, maxAge, w, r, s.logger)
	}

	var id string
	if c, err := r.Cookie(draftIDCookie); err == nil {
		if err := s.cookie.Decode(draftIDCookie, c.Value, &id); err != nil {
			s.logger.WithError(err).Debug("discarding unreadable draft id cookie")
			id = ""
		}
	}

	if id == "" {
		id = utils.NanoID()
		encoded, err := s.cookie.Encode(draftIDCookie, id)
		if err != nil {
			s.logger.WithError(err).Error("failed to encode draft id cookie")
		} else {
			http.SetCookie(w, &http.Cookie{
				Name:     draftIDCookie,
				Value:    encoded,
				HttpOnly: true,
				Secure:   s.config.Environment != "development",
				SameSite: http.SameSiteLaxMode,
				MaxAge:   maxAge,
				Path:     "/",
			})
		}
	}

	return draftstore.NewRedisStore(s.redis, id, time.Duration(maxAge)*time.Second)
}

func (s *Service) writeIntake(w http.ResponseWriter, status int, m *wizard.Machine, rec *notice.Recorder, errs wizard.FieldErrors) {
	state := intakeState{
		Step:    m.CurrentStep().String(),
		Draft:   m.Draft(),
		Notices: rec.All(),
	}
	if len(errs) > 0 {
		state.Errors = errs.Map()
	}
	if state.Notices == nil {
		state.Notices = []notice.Notice{}
	}
	s.writeData(w, status, state)
}

func (s *Service) stepParam(w http.ResponseWriter, r *http.Request) (wizard.Step, bool) {
	step, ok := wizard.ParseStep(r.PathValue("step"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "not_found", "Pas necunoscut.")
	}
	return step, ok
}

func (s *Service) handleGetIntake(w http.ResponseWriter, r *http.Request) {
	m, rec, err := s.machine(w, r)
	if err != nil {
		s.writeStoreError(w, err, "failed to restore intake draft")
		return
	}
	s.writeIntake(w, http.StatusOK, m, rec, nil)
}

// handleIntakeUpdate applies a form post to one step of the draft.
func (s *Service) handleIntakeUpdate(w http.ResponseWriter, r *http.Request) {
	step, ok := s.stepParam(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad_request", msgBadRequest)
		return
	}

	updates, err := wizard.DecodeStepForm(step, r.PostForm)
	if err != nil {
		s.logger.WithError(err).Debug("failed to decode intake form")
		s.writeError(w, http.StatusBadRequest, "bad_request", msgBadRequest)
		return
	}

	m, rec, err := s.machine(w, r)
	if err != nil {
		s.writeStoreError(w, err, "failed to restore intake draft")
		return
	}

	err = m.Apply(r.Context(), updates...)

	var errs wizard.FieldErrors
	switch {
	case errors.Is(err, wizard.ErrStepInert):
		s.writeError(w, http.StatusConflict, "step_inert", wizard.MsgStepAhead)
		return
	case errors.As(err, &errs):
		s.writeIntake(w, http.StatusBadRequest, m, rec, errs)
		return
	case errors.Is(err, types.ErrDraftTooLarge):
		s.logger.WithError(err).Info("intake draft does not fit the draft store")
		s.writeError(w, http.StatusRequestEntityTooLarge, "draft_too_large", wizard.MsgDraftTooLarge)
		return
	case err != nil:
		s.writeStoreError(w, err, "failed to save intake draft")
		return
	}

	s.writeIntake(w, http.StatusOK, m, rec, nil)
}

func (s *Service) handleIntakeAdvance(w http.ResponseWriter, r *http.Request) {
	step, ok := s.stepParam(w, r)
	if !ok {
		return
	}

	m, rec, err := s.machine(w, r)
	if err != nil {
		s.writeStoreError(w, err, "failed to restore intake draft")
		return
	}

	if errs := m.Advance(r.Context(), step); len(errs) > 0 {
		s.writeIntake(w, http.StatusBadRequest, m, rec, errs)
		return
	}

	s.writeIntake(w, http.StatusOK, m, rec, nil)
}

func (s *Service) handleIntakeEdit(w http.ResponseWriter, r *http.Request) {
	step, ok := s.stepParam(w, r)
	if !ok {
		return
	}

	m, rec, err := s.machine(w, r)
	if err != nil {
		s.writeStoreError(w, err, "failed to restore intake draft")
		return
	}

	err = m.EditStep(r.Context(), step)
	switch {
	case errors.Is(err, wizard.ErrStepAhead):
		s.writeError(w, http.StatusConflict, "step_ahead", wizard.MsgStepAhead)
		return
	case err != nil:
		s.writeStoreError(w, err, "failed to save intake draft")
		return
	}

	s.writeIntake(w, http.StatusOK, m, rec, nil)
}

func (s *Service) handleIntakeSubmit(w http.ResponseWriter, r *http.Request) {
	m, rec, err := s.machine(w, r)
	if err != nil {
		s.writeStoreError(w, err, "failed to restore intake draft")
		return
	}

	code, err := m.Submit(r.Context())

	var errs wizard.FieldErrors
	switch {
	case errors.As(err, &errs):
		s.metrics.GuestRequest("invalid")
		s.writeIntake(w, http.StatusBadRequest, m, rec, errs)
		return
	case errors.Is(err, wizard.ErrNotFinalStep):
		s.writeError(w, http.StatusConflict, "not_final_step", wizard.MsgStepAhead)
		return
	case errors.Is(err, errCompanySubmit):
		s.writeError(w, http.StatusForbidden, "forbidden", msgForbidden)
		return
	case err != nil:
		s.metrics.GuestRequest("error")
		s.writeStoreError(w, err, "failed to submit intake draft")
		return
	}

	s.metrics.GuestRequest("created")

	state := intakeState{
		Step:        m.CurrentStep().String(),
		Draft:       m.Draft(),
		Notices:     rec.All(),
		RequestCode: code,
	}
	s.writeData(w, http.StatusCreated, state)
}
