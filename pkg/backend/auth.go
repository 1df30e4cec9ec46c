package backend

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/voxdeck/voxdeck/pkg/jsontime"
)

// Session holds the tokens and identity returned by a successful sign-in.
type Session struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresAt    jsontime.Unix `json:"expires_at"`
	User         User          `json:"user"`
}

// User identifies the signed-in operator.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Expired reports whether the access token's expiry has passed. Expired
// sessions are not refreshed automatically; call Refresh or prompt for a
// new sign-in.
func (s *Session) Expired() bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt.Time())
}

// AuthService handles operator authentication.
type AuthService struct {
	client *Client
}

func newAuthService(c *Client) *AuthService {
	return &AuthService{client: c}
}

type passwordGrant struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshGrant struct {
	RefreshToken string `json:"refresh_token"`
}

// SignIn exchanges email/password credentials for a session. On success
// the session is installed on the client so subsequent calls run as the
// operator.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	query := url.Values{"grant_type": {"password"}}
	var session Session
	err := s.client.http.request(ctx, "POST", "/v1/auth/token", query, passwordGrant{
		Email:    email,
		Password: password,
	}, &session)
	if err != nil {
		return nil, err
	}
	s.client.SetSession(&session)
	return &session, nil
}

// SignUp registers a new operator account. Depending on project settings
// the returned session may be immediately usable or pending confirmation
// (in which case AccessToken is empty).
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := s.client.http.request(ctx, "POST", "/v1/auth/signup", nil, passwordGrant{
		Email:    email,
		Password: password,
	}, &session)
	if err != nil {
		return nil, err
	}
	if session.AccessToken != "" {
		s.client.SetSession(&session)
	}
	return &session, nil
}

// Refresh exchanges the current session's refresh token for a new session
// and installs it on the client.
func (s *AuthService) Refresh(ctx context.Context) (*Session, error) {
	current := s.client.Session()
	if current == nil || current.RefreshToken == "" {
		return nil, errors.New("backend: no session to refresh")
	}
	query := url.Values{"grant_type": {"refresh_token"}}
	var session Session
	err := s.client.http.request(ctx, "POST", "/v1/auth/token", query, refreshGrant{
		RefreshToken: current.RefreshToken,
	}, &session)
	if err != nil {
		return nil, err
	}
	s.client.SetSession(&session)
	return &session, nil
}

// SignOut revokes the current session on the platform and clears it from
// the client. Calling SignOut without a session is a no-op.
func (s *AuthService) SignOut(ctx context.Context) error {
	if s.client.Session() == nil {
		return nil
	}
	err := s.client.http.request(ctx, "POST", "/v1/auth/logout", nil, nil, nil)
	s.client.SetSession(nil)
	return err
}
