package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"workshop-onboarding/internal/common/errors"
	apihttp "workshop-onboarding/internal/common/http"
	"workshop-onboarding/internal/common/logger"
	"workshop-onboarding/internal/models"
)

const (
	loginPath    = "/api/v1/auth/login/workshop"
	registerPath = "/api/v1/auth/register/workshop"

	MinPasswordLength = 8
)

// RegistrationForm is the operator's sign-up input.
type RegistrationForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Client talks to the anonymous auth endpoints and manages the stored session.
type Client struct {
	http   *apihttp.Client
	store  TokenStore
	logger logger.Logger
}

// NewClient expects an http client built without credentials.
func NewClient(httpClient *apihttp.Client, store TokenStore, log logger.Logger) *Client {
	return &Client{
		http:   httpClient,
		store:  store,
		logger: logger.ForComponent(log, "auth-client"),
	}
}

// Login exchanges credentials for a session and persists it. The stored token is
// removed as soon as the session is invalidated.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	fields := map[string]string{}
	if strings.TrimSpace(username) == "" {
		fields["username"] = "Username is required"
	}
	if password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		return nil, errors.NewFormValidationError("Please enter your username and password", fields)
	}

	var resp models.LoginResponse
	req := models.LoginRequest{Username: strings.TrimSpace(username), Password: password}
	if err := c.http.DoJSON(ctx, http.MethodPost, loginPath, req, &resp, nil); err != nil {
		c.logger.Warn("login failed", map[string]interface{}{"username": req.Username, "error": err})
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, errors.NewInvalidResponseError("workshop-backend", errMissingToken)
	}

	name := resp.Username
	if name == "" {
		name = req.Username
	}
	session, err := NewSession(resp.AccessToken, name)
	if err != nil {
		return nil, err
	}
	if session.expiresAt.IsZero() && resp.ExpiresIn > 0 {
		session.expiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	if c.store != nil {
		if err := c.store.Save(session.Stored()); err != nil {
			return nil, err
		}
		c.attachStore(session)
	}

	c.logger.Info("logged in", map[string]interface{}{"username": session.Username()})
	return session, nil
}

// Register validates the form locally and creates the account. It does not log in.
func (c *Client) Register(ctx context.Context, form RegistrationForm) error {
	fields := map[string]string{}
	if strings.TrimSpace(form.Email) == "" {
		fields["email"] = "Email is required"
	}
	if len(form.Password) < MinPasswordLength {
		fields["password"] = "Password must be at least 8 characters"
	}
	if form.Password != form.ConfirmPassword {
		fields["confirmPassword"] = "Passwords do not match"
	}
	if len(fields) > 0 {
		msg := "Please fix the highlighted fields"
		if m, ok := fields["confirmPassword"]; ok && len(fields) == 1 {
			msg = m
		} else if m, ok := fields["password"]; ok && len(fields) == 1 {
			msg = m
		}
		return errors.NewFormValidationError(msg, fields)
	}

	req := models.RegisterRequest{
		Username: strings.TrimSpace(form.Username),
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
	}
	if err := c.http.DoJSON(ctx, http.MethodPost, registerPath, req, nil, nil); err != nil {
		return err
	}
	c.logger.Info("workshop account registered", map[string]interface{}{"email": req.Email})
	return nil
}

// Restore loads the stored session. It fails with SESSION_MISSING when nobody is logged in
// and SESSION_EXPIRED when the stored token is past its expiry (the file is cleared).
func (c *Client) Restore() (*Session, error) {
	if c.store == nil {
		return nil, errors.NewSessionMissingError()
	}
	stored, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	session, err := FromStored(stored)
	if err != nil {
		return nil, err
	}
	if !session.Valid() {
		_ = c.store.Clear()
		return nil, errors.NewSessionExpiredError(session.ExpiresAt())
	}
	c.attachStore(session)
	return session, nil
}

// Logout forgets the stored session.
func (c *Client) Logout(session *Session) error {
	if session != nil {
		session.Invalidate()
	}
	if c.store == nil {
		return nil
	}
	return c.store.Clear()
}

func (c *Client) attachStore(session *Session) {
	session.OnInvalidate(func() {
		if err := c.store.Clear(); err != nil {
			c.logger.Error("failed to clear stored session", map[string]interface{}{"error": err})
		}
	})
}

type authError string

func (e authError) Error() string { return string(e) }

const errMissingToken = authError("login response carried no access token")
