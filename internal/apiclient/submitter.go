package apiclient

import (
	"context"
	"net/url"

	"mutari/internal/session"
	"mutari/pkg/types"
)

// GuestSubmitter posts finished drafts, attaching the bearer token when a
// session exists.
type GuestSubmitter struct {
	Client  *Client
	Session session.Provider
}

func (s *GuestSubmitter) CreateGuest(ctx context.Context, payload *types.GuestRequestPayload) (string, error) {
	res, err := s.Client.CreateGuest(ctx, session.Token(s.Session), payload)
	if err != nil {
		return "", err
	}
	return res.RequestCode, nil
}

// ProfileHook makes sure a customer profile exists after sign-in.
func (c *Client) ProfileHook() session.SignInHook {
	return func(ctx context.Context, s *session.Session) error {
		return c.EnsureCustomer(ctx, s.Token, &types.EnsureCustomerPayload{})
	}
}

func urlQueryEscape(s string) string {
	return url.QueryEscape(s)
}
