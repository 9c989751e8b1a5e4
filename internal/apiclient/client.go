// Package apiclient calls the mutari HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mutari/pkg/types"
)

var ErrNotSignedIn = errors.New("not signed in")

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api returned %d", e.StatusCode)
}

// UserMessage is the server's message for rejected input. Other failures
// carry no user message so callers fall back to their generic text.
func (e *StatusError) UserMessage() string {
	if e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity {
		return e.Message
	}
	return ""
}

// IsUnavailable reports a 503 from the API.
func IsUnavailable(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusServiceUnavailable
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// CreateGuest submits a finished draft. token may be empty for guests.
func (c *Client) CreateGuest(ctx context.Context, token string, payload *types.GuestRequestPayload) (*types.CreateGuestResult, error) {
	var out types.Envelope[types.CreateGuestResult]
	if err := c.do(ctx, http.MethodPost, "/api/requests/createGuest", token, payload, &out); err != nil {
		return nil, err
	}

	if out.Data.RequestCode == "" {
		return nil, fmt.Errorf("createGuest returned no request code")
	}

	return &out.Data, nil
}

func (c *Client) UpdateMedia(ctx context.Context, token, requestID string, mediaURLs []string) error {
	if token == "" {
		return ErrNotSignedIn
	}

	return c.do(ctx, http.MethodPost, "/api/requests/updateMedia", token, &types.UpdateMediaPayload{
		RequestID: requestID,
		MediaURLs: mediaURLs,
	}, nil)
}

func (c *Client) UpdateStatus(ctx context.Context, token, requestID string, status types.RequestStatus) error {
	if token == "" {
		return ErrNotSignedIn
	}

	return c.do(ctx, http.MethodPost, "/api/requests/updateStatus", token, &types.UpdateStatusPayload{
		RequestID: requestID,
		Status:    status,
	}, nil)
}

func (c *Client) AcceptOffer(ctx context.Context, token, requestID, offerID string) error {
	return c.offerAction(ctx, "/api/offers/accept", token, requestID, offerID)
}

func (c *Client) DeclineOffer(ctx context.Context, token, requestID, offerID string) error {
	return c.offerAction(ctx, "/api/offers/decline", token, requestID, offerID)
}

func (c *Client) offerAction(ctx context.Context, path, token, requestID, offerID string) error {
	if token == "" {
		return ErrNotSignedIn
	}

	return c.do(ctx, http.MethodPost, path, token, &types.OfferActionPayload{
		RequestID: requestID,
		OfferID:   offerID,
	}, nil)
}

func (c *Client) MarkChatRead(ctx context.Context, token, offerID string) error {
	if token == "" {
		return ErrNotSignedIn
	}

	return c.do(ctx, http.MethodPost, "/api/chat/markRead", token, &types.MarkReadPayload{OfferID: offerID}, nil)
}

// EnsureCustomer creates the caller's customer profile if it is missing.
func (c *Client) EnsureCustomer(ctx context.Context, token string, payload *types.EnsureCustomerPayload) error {
	if token == "" {
		return ErrNotSignedIn
	}

	return c.do(ctx, http.MethodPost, "/api/customers/ensure", token, payload, nil)
}

func (c *Client) SearchLocations(ctx context.Context, q string) ([]types.Location, error) {
	var out []types.Location
	path := "/api/locations/search?q=" + urlQueryEscape(q)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode}

		var env types.ErrorEnvelope
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &env) == nil {
			se.Code = env.Error.Code
			se.Message = env.Error.Message
		}

		return se
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}
