package server

import (
	"errors"
	"net/http"

	"mutari/internal/notify"
	"mutari/internal/store"
	"mutari/pkg/types"
)

func (s *Service) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload := new(types.OfferActionPayload)
	if !s.decodeJSON(w, r, payload) {
		return
	}

	request, ok := s.ownedRequest(w, r, payload.RequestID)
	if !ok {
		return
	}

	identity, _ := identityFrom(ctx)
	offer, err := s.offers.AcceptOffer(ctx, request.ID, payload.OfferID, actorOf(identity))
	if err != nil {
		s.metrics.OfferAction("accept", actionOutcome(err))
		s.writeStoreError(w, err, "failed to accept offer")
		return
	}

	s.metrics.OfferAction("accept", "success")
	s.logger.WithField("request_id", request.ID).WithField("offer_id", offer.ID).Info("offer accepted")

	s.sendMail(ctx, offer.CompanyEmail, notify.OfferAccepted{
		CompanyName:   offer.CompanyName,
		CustomerName:  request.ContactName(),
		CustomerPhone: request.Phone,
		CustomerEmail: request.Email,
		RequestCode:   request.Code(),
		FromCity:      request.FromCity,
		ToCity:        request.ToCity,
		Price:         offer.Price,
	})

	s.writeData(w, http.StatusOK, offer)
}

func (s *Service) handleDeclineOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload := new(types.OfferActionPayload)
	if !s.decodeJSON(w, r, payload) {
		return
	}

	request, ok := s.ownedRequest(w, r, payload.RequestID)
	if !ok {
		return
	}

	offer, err := s.offers.DeclineOffer(ctx, request.ID, payload.OfferID)
	if err != nil {
		s.metrics.OfferAction("decline", actionOutcome(err))
		s.writeStoreError(w, err, "failed to decline offer")
		return
	}

	s.metrics.OfferAction("decline", "success")

	s.sendMail(ctx, offer.CompanyEmail, notify.OfferDeclined{
		CompanyName: offer.CompanyName,
		RequestCode: request.Code(),
		FromCity:    request.FromCity,
		ToCity:      request.ToCity,
	})

	s.writeData(w, http.StatusOK, offer)
}

// handleCreateOffer lets a company bid on an active request.
func (s *Service) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := identityFrom(ctx)
	if !ok || identity.Role != types.RoleCompany {
		s.writeError(w, http.StatusForbidden, "forbidden", msgForbidden)
		return
	}

	payload := new(types.CreateOfferPayload)
	if !s.decodeJSON(w, r, payload) {
		return
	}

	request, err := s.requests.Request(ctx, payload.RequestID)
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch request")
		return
	}

	company, err := s.companies.Company(ctx, identity.CompanyID)
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch company")
		return
	}

	offer := &types.Offer{
		RequestID: request.ID,
		CompanyID: company.ID,
		Price:     payload.Price,
		Message:   payload.Message,
	}
	if err := s.offers.CreateOffer(ctx, offer); err != nil {
		s.metrics.OfferAction("create", actionOutcome(err))
		s.writeStoreError(w, err, "failed to create offer")
		return
	}
	offer.CompanyName = company.Name

	s.metrics.OfferAction("create", "success")

	s.sendMail(ctx, request.Email, notify.NewOffer{
		CustomerName: request.ContactFirstName,
		CompanyName:  company.Name,
		RequestCode:  request.Code(),
		Price:        offer.Price,
		Message:      offer.Message,
		DashboardURL: s.dashboardURL(request.ID),
	})

	s.writeData(w, http.StatusCreated, offer)
}

func actionOutcome(err error) string {
	switch {
	case store.Unavailable(err):
		return "unavailable"
	case errors.Is(err, types.ErrOfferAlreadyAccepted),
		errors.Is(err, types.ErrOfferNotPending),
		errors.Is(err, types.ErrInvalidTransition),
		errors.Is(err, types.ErrRequestNotOpen),
		errors.Is(err, types.ErrOfferExists):
		return "conflict"
	}
	return "error"
}
