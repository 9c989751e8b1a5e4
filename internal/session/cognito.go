package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"
)

var ErrSignInFailed = errors.New("sign in failed")

type CognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

// SignInHook runs after every successful sign-in, e.g. to make sure the
// customer profile exists. Hook errors are logged, not returned.
type SignInHook func(ctx context.Context, s *Session) error

// Cognito signs users in against a Cognito user pool and publishes the
// resulting session on a Manager.
type Cognito struct {
	api      CognitoAPI
	clientID string
	manager  *Manager
	logger   logrus.FieldLogger
	hooks    []SignInHook
}

func NewCognito(api CognitoAPI, clientID string, manager *Manager, logger logrus.FieldLogger) *Cognito {
	return &Cognito{api: api, clientID: clientID, manager: manager, logger: logger}
}

func (c *Cognito) OnSignIn(hook SignInHook) {
	c.hooks = append(c.hooks, hook)
}

func (c *Cognito) SignIn(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignInFailed, err)
	}

	s, err := sessionFromAuth(resp.AuthenticationResult, "")
	if err != nil {
		return nil, err
	}

	c.manager.SignIn(s)

	for _, hook := range c.hooks {
		if err := hook(ctx, s); err != nil {
			c.logger.WithError(err).WithField("user_id", s.UserID).Warn("sign in hook failed")
		}
	}

	return s, nil
}

// Refresh trades the refresh token of the current session for new tokens.
func (c *Cognito) Refresh(ctx context.Context) error {
	current := c.manager.Current()
	if current == nil || current.RefreshToken == "" {
		return ErrSignInFailed
	}

	resp, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": current.RefreshToken,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	s, err := sessionFromAuth(resp.AuthenticationResult, current.RefreshToken)
	if err != nil {
		return err
	}

	c.manager.SignIn(s)
	return nil
}

func (c *Cognito) SignOut() {
	c.manager.SignOut()
}

// The ID token is the bearer: it carries the email and custom role claims
// the API authorizes on. Its signature is checked server side.
func sessionFromAuth(res *ctypes.AuthenticationResultType, refresh string) (*Session, error) {
	if res == nil || res.IdToken == nil {
		return nil, fmt.Errorf("%w: no tokens in response", ErrSignInFailed)
	}

	idToken := aws.ToString(res.IdToken)
	token, err := jwt.ParseInsecure([]byte(idToken))
	if err != nil {
		return nil, fmt.Errorf("failed to parse id token: %w", err)
	}

	userID, ok := token.Subject()
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: id token has no subject", ErrSignInFailed)
	}

	var email string
	_ = token.Get("email", &email)

	if res.RefreshToken != nil {
		refresh = aws.ToString(res.RefreshToken)
	}

	return &Session{
		UserID:       userID,
		Email:        email,
		Token:        idToken,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(time.Duration(res.ExpiresIn) * time.Second),
	}, nil
}
