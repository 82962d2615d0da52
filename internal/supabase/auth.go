package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ivalora-gadget/console/internal/account"
)

// tokenResponse is returned by the token, verify and (auto-confirmed) signup endpoints
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u *userResponse) identity() account.Identity {
	if u == nil {
		return account.Identity{}
	}
	return account.Identity{
		ID:       u.ID,
		Email:    u.Email,
		FullName: fullName(u.UserMetadata),
	}
}

func (c *Client) sessionFromToken(resp *tokenResponse) (*account.Session, error) {
	if resp.AccessToken == "" {
		return nil, ErrNoSession
	}

	session := &account.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		User:         resp.User.identity(),
	}

	switch {
	case resp.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(resp.ExpiresAt, 0)
	case resp.ExpiresIn > 0:
		session.ExpiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	// Fill whatever the response left out from the token itself
	if session.User.ID == "" || session.ExpiresAt.IsZero() {
		claims, err := parseAccessToken(resp.AccessToken)
		if err != nil {
			return nil, err
		}
		if session.User.ID == "" {
			session.User = claims.identity()
		}
		if session.ExpiresAt.IsZero() {
			session.ExpiresAt = claims.expiresAt()
		}
	}

	return session, nil
}

// loadLocked reads the persisted session once per store
func (c *Client) loadLocked() error {
	if c.loaded {
		return nil
	}
	session, err := c.store.Load()
	if err != nil {
		return err
	}
	c.session = session
	c.loaded = true
	return nil
}

// setSessionLocked replaces the session, persists it and notifies listeners
func (c *Client) setSessionLocked(session *account.Session, event Event) {
	c.session = session.Clone()
	c.loaded = true

	var err error
	if session == nil {
		c.recovery = false
		err = c.store.Delete()
	} else {
		err = c.store.Save(session)
	}
	if err != nil {
		// The in-memory session stays authoritative for this run
		c.logger.Warn().Err(err).Str("event", string(event)).Msg("Failed to persist session")
	}

	c.emitLocked(event, session)
}

// GetSession returns the current session, or nil when signed out. An expired
// session is refreshed first.
func (c *Client) GetSession(ctx context.Context) (*account.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return nil, err
	}

	if c.session == nil {
		return nil, nil
	}

	if c.session.Expired(c.now(), 0) {
		if c.session.RefreshToken == "" {
			c.setSessionLocked(nil, EventSignedOut)
			return nil, nil
		}
		if err := c.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}

	return c.session.Clone(), nil
}

// RefreshIfExpiring refreshes the session when it expires within margin
func (c *Client) RefreshIfExpiring(ctx context.Context, margin time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return err
	}
	if c.session == nil || c.session.RefreshToken == "" {
		return nil
	}
	if !c.session.Expired(c.now(), margin) {
		return nil
	}
	return c.refreshLocked(ctx)
}

func (c *Client) refreshLocked(ctx context.Context) error {
	var resp tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": c.session.RefreshToken},
	}, &resp)
	if err != nil {
		if isSessionRejected(err) {
			c.setSessionLocked(nil, EventSignedOut)
		}
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	session, err := c.sessionFromToken(&resp)
	if err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	c.setSessionLocked(session, EventTokenRefreshed)
	return nil
}

// SignInWithPassword verifies credentials and starts a session
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*account.Session, error) {
	var resp tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/token",
		query:  url.Values{"grant_type": {"password"}},
		body: map[string]string{
			"email":    email,
			"password": password,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	session, err := c.sessionFromToken(&resp)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.recovery = false
	c.setSessionLocked(session, EventSignedIn)

	return session.Clone(), nil
}

// SignUpParams are the fields of a registration
type SignUpParams struct {
	Email    string
	Password string
	// Data is stored as user metadata (e.g. full_name)
	Data map[string]any
	// RedirectTo is where the verification link sends the user
	RedirectTo string
}

// SignUpResult carries the created identity. Session is nil while the email
// still has to be verified.
type SignUpResult struct {
	User    account.Identity
	Session *account.Session
}

type signUpResponse struct {
	tokenResponse
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// SignUp registers a new account
func (c *Client) SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error) {
	query := url.Values{}
	if params.RedirectTo != "" {
		query.Set("redirect_to", params.RedirectTo)
	}

	body := map[string]any{
		"email":    params.Email,
		"password": params.Password,
	}
	if len(params.Data) > 0 {
		body["data"] = params.Data
	}

	var resp signUpResponse
	if err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/signup",
		query:  query,
		body:   body,
	}, &resp); err != nil {
		return nil, err
	}

	// Projects with email confirmation return the bare user
	if resp.AccessToken == "" {
		user := &userResponse{ID: resp.ID, Email: resp.Email, UserMetadata: resp.UserMetadata}
		if resp.User != nil {
			user = resp.User
		}
		return &SignUpResult{User: user.identity()}, nil
	}

	session, err := c.sessionFromToken(&resp.tokenResponse)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSessionLocked(session, EventSignedIn)

	return &SignUpResult{User: session.User, Session: session.Clone()}, nil
}

// SignOut revokes the session remotely and forgets it locally. The local
// session is kept when the remote call fails for any reason other than the
// session already being gone.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	if err := c.loadLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	var token string
	if c.session != nil {
		token = c.session.AccessToken
	}
	c.mu.Unlock()

	if token != "" {
		err := c.do(ctx, request{
			method: http.MethodPost,
			path:   authPrefix + "/logout",
			token:  token,
		}, nil)
		if err != nil && !isSessionRejected(err) {
			return fmt.Errorf("failed to sign out: %w", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSessionLocked(nil, EventSignedOut)

	return nil
}

// SignOutLocal forgets the session on this device without contacting the
// hosted service. The refresh token stays valid remotely until it expires.
func (c *Client) SignOutLocal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSessionLocked(nil, EventSignedOut)
}

// UpdatePassword sets a new password for the signed-in (or recovering) user
func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	c.mu.Lock()
	if err := c.loadLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.session == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	token := c.session.AccessToken
	c.mu.Unlock()

	var user userResponse
	if err := c.do(ctx, request{
		method: http.MethodPut,
		path:   authPrefix + "/user",
		body:   map[string]string{"password": password},
		token:  token,
	}, &user); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.AccessToken != token {
		// Signed out or replaced while the request was in flight
		return nil
	}
	updated := c.session.Clone()
	if user.ID != "" {
		updated.User = user.identity()
	}
	c.recovery = false
	c.setSessionLocked(updated, EventUserUpdated)

	return nil
}

// ResetPasswordForEmail sends a recovery link to email
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}

	return c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/recover",
		query:  query,
		body:   map[string]string{"email": email},
	}, nil)
}

// SessionFromURL adopts the session carried in the fragment of a redirect
// link (verification or recovery). Recovery links put the client in
// recovery mode until the password is updated.
func (c *Client) SessionFromURL(link string) (*account.Session, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("failed to parse link: %w", err)
	}

	params, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return nil, fmt.Errorf("failed to parse link fragment: %w", err)
	}

	if desc := params.Get("error_description"); desc != "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Code: params.Get("error_code"), Message: desc}
	}

	resp := &tokenResponse{
		AccessToken:  params.Get("access_token"),
		RefreshToken: params.Get("refresh_token"),
		TokenType:    params.Get("token_type"),
	}
	if resp.AccessToken == "" {
		return nil, ErrNoTokenInLink
	}
	if v := params.Get("expires_at"); v != "" {
		resp.ExpiresAt, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := params.Get("expires_in"); v != "" && resp.ExpiresAt == 0 {
		resp.ExpiresIn, _ = strconv.ParseInt(v, 10, 64)
	}

	session, err := c.sessionFromToken(resp)
	if err != nil {
		return nil, err
	}

	event := EventSignedIn
	recovery := params.Get("type") == "recovery"
	if recovery {
		event = EventPasswordRecovery
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.recovery = recovery
	c.setSessionLocked(session, event)

	return session.Clone(), nil
}

// InRecovery reports whether the current session was opened by a recovery
// link and the password has not been updated yet.
func (c *Client) InRecovery() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recovery && c.session != nil
}

// accessToken returns the token rows are read with. Signed-out reads use the
// anon key.
func (c *Client) accessToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return "", err
	}
	if c.session == nil {
		return "", nil
	}
	return c.session.AccessToken, nil
}
