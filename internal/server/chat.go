package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"mutari/internal/notify"
	"mutari/pkg/types"
)

// conversation is an offer thread plus the request it belongs to.
type conversation struct {
	offer   *types.Offer
	request *types.MovingRequest
}

// participant loads the offer's conversation when the caller is the
// request owner or the bidding company.
func (s *Service) participant(w http.ResponseWriter, r *http.Request, offerID string) (*conversation, *types.Identity, bool) {
	ctx := r.Context()

	identity, ok := identityFrom(ctx)
	if !ok {
		s.writeError(w, http.StatusForbidden, "forbidden", msgForbidden)
		return nil, nil, false
	}

	offer, err := s.offers.Offer(ctx, offerID)
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch offer")
		return nil, nil, false
	}

	request, err := s.requests.Request(ctx, offer.RequestID)
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch request")
		return nil, nil, false
	}

	allowed := false
	switch identity.Role {
	case types.RoleCustomer:
		allowed = request.CustomerID == identity.UserID
	case types.RoleCompany:
		allowed = offer.CompanyID == identity.CompanyID
	}
	if !allowed {
		s.writeError(w, http.StatusForbidden, "forbidden", msgForbidden)
		return nil, nil, false
	}

	return &conversation{offer: offer, request: request}, identity, true
}

func (s *Service) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload := new(types.ChatMessagePayload)
	if !s.decodeJSON(w, r, payload) {
		return
	}

	conv, identity, ok := s.participant(w, r, payload.OfferID)
	if !ok {
		return
	}

	senderID := identity.UserID
	if identity.Role == types.RoleCompany {
		senderID = identity.CompanyID
	}

	message := &types.ChatMessage{
		OfferID:    conv.offer.ID,
		RequestID:  conv.request.ID,
		SenderRole: identity.Role,
		SenderID:   senderID,
		Body:       strings.TrimSpace(payload.Body),
	}
	if err := s.chat.CreateMessage(ctx, message); err != nil {
		s.writeStoreError(w, err, "failed to create chat message")
		return
	}

	// the sender has seen everything up to their own message
	if err := s.chat.MarkRead(ctx, conv.offer.ID, identity.Role, message.CreatedAt); err != nil {
		s.logger.WithError(err).Warn("failed to advance sender read marker")
	}

	to, data := s.messageNotification(conv, message)
	s.sendMail(ctx, to, data)

	s.writeData(w, http.StatusCreated, message)
}

func (s *Service) messageNotification(conv *conversation, m *types.ChatMessage) (string, notify.NewMessage) {
	data := notify.NewMessage{
		RequestCode: conv.request.Code(),
		Preview:     m.Body,
	}

	if m.SenderRole == types.RoleCustomer {
		data.RecipientName = conv.offer.CompanyName
		data.SenderName = conv.request.ContactName()
		data.ConversationURL = strings.TrimSuffix(s.config.PublicURL, "/") + "/company/offers/" + url.PathEscape(conv.offer.ID)
		return conv.offer.CompanyEmail, data
	}

	data.RecipientName = conv.request.ContactFirstName
	data.SenderName = conv.offer.CompanyName
	data.ConversationURL = s.dashboardURL(conv.request.ID) + "&offer=" + url.QueryEscape(conv.offer.ID)
	return conv.request.Email, data
}

func (s *Service) handleChatMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload := new(types.MarkReadPayload)
	if !s.decodeJSON(w, r, payload) {
		return
	}

	conv, identity, ok := s.participant(w, r, payload.OfferID)
	if !ok {
		return
	}

	at := time.Now()
	if err := s.chat.MarkRead(ctx, conv.offer.ID, identity.Role, at); err != nil {
		s.writeStoreError(w, err, "failed to mark chat read")
		return
	}

	s.writeData(w, http.StatusOK, types.ReadMarker{OfferID: conv.offer.ID, Role: identity.Role, LastReadAt: at})
}
