package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"mutari/internal/notify"
	"mutari/internal/storage"
	"mutari/internal/utils"
	"mutari/internal/wizard"
	"mutari/pkg/types"
)

var errCompanySubmit = errors.New("companies cannot submit moving requests")

func (s *Service) handleCreateGuest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload := new(types.GuestRequestPayload)
	if !s.decodeJSON(w, r, payload) {
		s.metrics.GuestRequest("invalid")
		return
	}

	// tag rules cannot express the schedule and date checks
	if errs := wizard.Validate(payload.Draft(int(wizard.LastStep))); len(errs) > 0 {
		s.metrics.GuestRequest("invalid")
		s.writeValidation(w, errs)
		return
	}

	identity, _ := identityFrom(ctx)

	result, err := s.createRequest(ctx, identity, payload)
	if errors.Is(err, errCompanySubmit) {
		s.writeError(w, http.StatusForbidden, "forbidden", msgForbidden)
		return
	}
	if err != nil {
		s.metrics.GuestRequest("error")
		s.writeStoreError(w, err, "failed to create moving request")
		return
	}

	s.metrics.GuestRequest("created")
	s.writeData(w, http.StatusCreated, result)
}

// createRequest stores a validated payload. Guests get a customer profile
// keyed by the contact email; signed-in customers submit as themselves.
func (s *Service) createRequest(ctx context.Context, identity *types.Identity, payload *types.GuestRequestPayload) (*types.CreateGuestResult, error) {
	var customerID string
	switch {
	case identity == nil:
		customer, err := s.customers.GuestCustomer(ctx, payload.Email, payload.ContactFirstName, payload.ContactLastName, wizard.NormalizePhone(payload.Phone))
		if err != nil {
			return nil, err
		}
		customerID = customer.ID
	case identity.Role == types.RoleCompany:
		return nil, errCompanySubmit
	default:
		ensured := *identity
		if ensured.Email == "" {
			ensured.Email = payload.Email
		}
		customer, err := s.customers.EnsureCustomer(ctx, &ensured, &types.EnsureCustomerPayload{
			GivenName:  payload.ContactFirstName,
			FamilyName: payload.ContactLastName,
			Phone:      wizard.NormalizePhone(payload.Phone),
		})
		if err != nil {
			return nil, err
		}
		customerID = customer.ID
	}

	request := requestFromPayload(payload, customerID)
	if err := s.requests.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	s.logger.WithField("request_id", request.ID).WithField("request_code", request.Code()).Info("moving request created")

	s.sendMail(ctx, request.Email, notify.GuestRequestConfirmed{
		CustomerName: request.ContactFirstName,
		RequestCode:  request.Code(),
		FromCity:     request.FromCity,
		ToCity:       request.ToCity,
		MoveDate:     describeMoveDate(request),
		DashboardURL: s.dashboardURL(request.ID),
	})

	result := &types.CreateGuestResult{RequestCode: request.Code()}
	if identity != nil {
		result.RequestID = request.ID
	}
	return result, nil
}

func requestFromPayload(p *types.GuestRequestPayload, customerID string) *types.MovingRequest {
	request := &types.MovingRequest{
		CustomerID: customerID,

		FromCounty:       strings.TrimSpace(p.FromCounty),
		FromCity:         strings.TrimSpace(p.FromCity),
		FromStreet:       strings.TrimSpace(p.FromStreet),
		FromPropertyType: p.FromPropertyType,
		FromFloor:        p.FromFloor,
		FromElevator:     p.FromElevator,
		FromRooms:        p.FromRooms,

		ToCounty:       strings.TrimSpace(p.ToCounty),
		ToCity:         strings.TrimSpace(p.ToCity),
		ToStreet:       strings.TrimSpace(p.ToStreet),
		ToPropertyType: p.ToPropertyType,
		ToFloor:        p.ToFloor,
		ToElevator:     p.ToElevator,
		ToRooms:        p.ToRooms,

		MoveDateMode: p.MoveDateMode,

		Services:    append([]types.Service{}, p.Services...),
		SurveyType:  p.SurveyType,
		MediaUpload: p.MediaUpload,
		MediaURLs:   append([]string{}, p.MediaURLs...),
		Details:     strings.TrimSpace(p.Details),

		ContactFirstName: strings.TrimSpace(p.ContactFirstName),
		ContactLastName:  strings.TrimSpace(p.ContactLastName),
		Phone:            wizard.NormalizePhone(p.Phone),
		Email:            strings.ToLower(strings.TrimSpace(p.Email)),
	}

	switch p.MoveDateMode {
	case types.ScheduleModeExact:
		request.MoveDate = utils.StringPtrOrNil(p.MoveDate)
	case types.ScheduleModeRange:
		request.MoveDateStart = utils.StringPtrOrNil(p.MoveDateStart)
		request.MoveDateEnd = utils.StringPtrOrNil(p.MoveDateEnd)
	case types.ScheduleModeFlexible:
		request.MoveDate = utils.StringPtrOrNil(p.MoveDate)
		request.MoveDateFlexDays = utils.IntPtrOrNil(p.MoveDateFlexDays)
	}

	if request.MediaUpload == "" {
		request.MediaUpload = types.MediaNone
	}

	return request
}

func describeMoveDate(r *types.MovingRequest) string {
	switch r.MoveDateMode {
	case types.ScheduleModeExact:
		return utils.PtrString(r.MoveDate)
	case types.ScheduleModeRange:
		return utils.PtrString(r.MoveDateStart) + " - " + utils.PtrString(r.MoveDateEnd)
	case types.ScheduleModeFlexible:
		return fmt.Sprintf("%s (± %d zile)", utils.PtrString(r.MoveDate), utils.PtrInt(r.MoveDateFlexDays))
	}
	return ""
}

func (s *Service) dashboardURL(requestID string) string {
	return strings.TrimSuffix(s.config.PublicURL, "/") + "/dashboard?request=" + url.QueryEscape(requestID)
}

func (s *Service) handleUpdateMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload := new(types.UpdateMediaPayload)
	if !s.decodeJSON(w, r, payload) {
		return
	}

	request, ok := s.ownedRequest(w, r, payload.RequestID)
	if !ok {
		return
	}

	if err := s.requests.UpdateMedia(ctx, request.ID, payload.MediaURLs); err != nil {
		s.writeStoreError(w, err, "failed to update media")
		return
	}

	removed := missingFrom(request.MediaURLs, payload.MediaURLs)
	if len(removed) > 0 {
		n := storage.RemoveAll(context.WithoutCancel(ctx), s.media, s.logger.WithField("request_id", request.ID), removed)
		s.metrics.MediaRemoved(n)
	}

	s.writeData(w, http.StatusOK, map[string]any{
		"requestId": request.ID,
		"mediaUrls": payload.MediaURLs,
	})
}

func (s *Service) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload := new(types.UpdateStatusPayload)
	if !s.decodeJSON(w, r, payload) {
		return
	}

	request, ok := s.ownedRequest(w, r, payload.RequestID)
	if !ok {
		return
	}

	identity, _ := identityFrom(ctx)
	if _, err := s.requests.UpdateStatus(ctx, request.ID, payload.Status, actorOf(identity)); err != nil {
		s.writeStoreError(w, err, "failed to update request status")
		return
	}

	s.writeData(w, http.StatusOK, map[string]any{
		"requestId": request.ID,
		"status":    payload.Status,
	})
}

// ownedRequest loads a request the caller owns, writing the error response
// otherwise.
func (s *Service) ownedRequest(w http.ResponseWriter, r *http.Request, requestID string) (*types.MovingRequest, bool) {
	identity, ok := identityFrom(r.Context())
	if !ok || identity.Role != types.RoleCustomer {
		s.writeError(w, http.StatusForbidden, "forbidden", msgForbidden)
		return nil, false
	}

	request, err := s.requests.Request(r.Context(), requestID)
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch request")
		return nil, false
	}

	if request.CustomerID != identity.UserID {
		s.logger.WithField("request_id", requestID).WithField("user_id", identity.UserID).Warn("request ownership check failed")
		s.writeError(w, http.StatusForbidden, "forbidden", msgForbidden)
		return nil, false
	}

	return request, true
}

func actorOf(identity *types.Identity) string {
	if identity == nil {
		return "guest"
	}
	if identity.Role == types.RoleCompany {
		return "company:" + identity.CompanyID
	}
	return "customer:" + identity.UserID
}

// missingFrom returns the entries of before that are not in after.
func missingFrom(before, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, u := range after {
		keep[u] = true
	}

	var out []string
	for _, u := range before {
		if !keep[u] {
			out = append(out, u)
		}
	}
	return out
}

func (s *Service) sendMail(ctx context.Context, to string, data notify.Data) {
	if s.mailer == nil {
		return
	}
	s.mailer.Go(ctx, to, data)
}
