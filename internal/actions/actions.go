// Package actions applies customer decisions on offers and requests through
// the authenticated API. Nothing is changed locally before the server
// confirms; the live feed carries the authoritative result.
package actions

import (
	"context"
	"fmt"

	"mutari/internal/apiclient"
	"mutari/internal/notice"
	"mutari/internal/session"
	"mutari/pkg/types"

	"github.com/sirupsen/logrus"
)

var ErrNotSignedIn = apiclient.ErrNotSignedIn

// API is the subset of the HTTP client the actions call.
type API interface {
	AcceptOffer(ctx context.Context, token, requestID, offerID string) error
	DeclineOffer(ctx context.Context, token, requestID, offerID string) error
	UpdateStatus(ctx context.Context, token, requestID string, status types.RequestStatus) error
	UpdateMedia(ctx context.Context, token, requestID string, mediaURLs []string) error
}

// MediaOverlay hides a media url until the feed confirms or the returned
// revert is called.
type MediaOverlay interface {
	RemoveMediaIntent(requestID, url string) (revert func())
}

type Client struct {
	api      API
	session  session.Provider
	notifier notice.Notifier
	logger   logrus.FieldLogger
}

func New(api API, provider session.Provider, notifier notice.Notifier, logger logrus.FieldLogger) *Client {
	return &Client{
		api:      api,
		session:  provider,
		notifier: notifier,
		logger:   logger,
	}
}

func (c *Client) Accept(ctx context.Context, requestID, offerID string) error {
	return c.run(ctx, "accept_offer", logrus.Fields{"request_id": requestID, "offer_id": offerID}, notice.MsgOfferAccepted,
		func(token string) error { return c.api.AcceptOffer(ctx, token, requestID, offerID) })
}

func (c *Client) Decline(ctx context.Context, requestID, offerID string) error {
	return c.run(ctx, "decline_offer", logrus.Fields{"request_id": requestID, "offer_id": offerID}, notice.MsgOfferDeclined,
		func(token string) error { return c.api.DeclineOffer(ctx, token, requestID, offerID) })
}

func (c *Client) Reactivate(ctx context.Context, requestID string) error {
	return c.setStatus(ctx, requestID, types.RequestStatusActive, notice.MsgRequestReactivated)
}

// Finalize marks a request done once the move happened.
func (c *Client) Finalize(ctx context.Context, requestID string) error {
	return c.setStatus(ctx, requestID, types.RequestStatusClosed, notice.MsgRequestFinalized)
}

func (c *Client) Close(ctx context.Context, requestID string) error {
	return c.setStatus(ctx, requestID, types.RequestStatusClosed, notice.MsgRequestClosed)
}

func (c *Client) Pause(ctx context.Context, requestID string) error {
	return c.setStatus(ctx, requestID, types.RequestStatusPaused, notice.MsgRequestPaused)
}

func (c *Client) setStatus(ctx context.Context, requestID string, status types.RequestStatus, success string) error {
	fields := logrus.Fields{"request_id": requestID, "status": string(status)}
	return c.run(ctx, "update_status", fields, success,
		func(token string) error { return c.api.UpdateStatus(ctx, token, requestID, status) })
}

// RemoveMedia hides url right away and asks the server to drop it from the
// request. On failure the overlay is reverted to the last server state.
func (c *Client) RemoveMedia(ctx context.Context, overlay MediaOverlay, req *types.MovingRequest, url string) error {
	token := session.Token(c.session)
	if token == "" {
		notice.Error(c.notifier, notice.MsgSignInRequired)
		return ErrNotSignedIn
	}

	remaining := make([]string, 0, len(req.MediaURLs))
	for _, u := range req.MediaURLs {
		if u != url {
			remaining = append(remaining, u)
		}
	}

	revert := overlay.RemoveMediaIntent(req.ID, url)

	if err := c.api.UpdateMedia(ctx, token, req.ID, remaining); err != nil {
		revert()
		c.logger.WithError(err).WithFields(logrus.Fields{"request_id": req.ID, "url": url}).Error("failed to remove media")
		notice.Error(c.notifier, notice.MsgMediaRemoveFailed)
		return fmt.Errorf("failed to remove media: %w", err)
	}

	notice.Success(c.notifier, notice.MsgMediaRemoved)
	return nil
}

func (c *Client) run(ctx context.Context, action string, fields logrus.Fields, success string, call func(token string) error) error {
	token := session.Token(c.session)
	if token == "" {
		notice.Error(c.notifier, notice.MsgSignInRequired)
		return ErrNotSignedIn
	}

	err := call(token)
	switch {
	case err == nil:
		notice.Success(c.notifier, success)
		return nil
	case apiclient.IsUnavailable(err):
		c.logger.WithError(err).WithFields(fields).Warn(action + " unavailable")
		notice.Error(c.notifier, notice.MsgUnavailable)
	default:
		c.logger.WithError(err).WithFields(fields).Error(action + " failed")
		notice.Error(c.notifier, notice.MsgGenericError)
	}

	return fmt.Errorf("failed to %s: %w", action, err)
}
