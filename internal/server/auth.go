package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"mutari/pkg/types"

	"github.com/gorilla/websocket"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

var errNoBearer = errors.New("no bearer token")

// TokenVerifier resolves a raw access token to the caller.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*types.Identity, error)
}

// JWKSVerifier checks Cognito access tokens against the pool's published
// key set.
type JWKSVerifier struct {
	cache   *jwk.Cache
	jwksURL string
}

func NewJWKSVerifier(cache *jwk.Cache, jwksURL string) *JWKSVerifier {
	return &JWKSVerifier{cache: cache, jwksURL: jwksURL}
}

func (v *JWKSVerifier) Verify(ctx context.Context, raw string) (*types.Identity, error) {
	set, err := v.cache.Lookup(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	return identityFromToken(token)
}

func identityFromToken(token jwt.Token) (*types.Identity, error) {
	userID, ok := token.Subject()
	if !ok || userID == "" {
		return nil, errors.New("no user ID in JWT subject claim")
	}

	identity := &types.Identity{Subject: userID, UserID: userID, Role: types.RoleCustomer}

	// access tokens carry no email; id tokens do
	var email string
	if err := token.Get("email", &email); err == nil {
		identity.Email = strings.ToLower(email)
	}

	var role string
	if err := token.Get("custom:role", &role); err == nil && types.Role(role) == types.RoleCompany {
		identity.Role = types.RoleCompany
	}

	var companyID string
	if err := token.Get("custom:company_id", &companyID); err == nil {
		identity.CompanyID = companyID
	}

	if identity.Role == types.RoleCompany && identity.CompanyID == "" {
		return nil, errors.New("company token without company id")
	}

	return identity, nil
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so those may pass access_token in the query instead.
func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" && websocket.IsWebSocketUpgrade(r) {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, nil
		}
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errNoBearer
	}
	return strings.TrimSpace(token), nil
}

func identityFrom(ctx context.Context) (*types.Identity, bool) {
	identity, ok := ctx.Value(contextKeyIdentity).(*types.Identity)
	return identity, ok && identity != nil
}
