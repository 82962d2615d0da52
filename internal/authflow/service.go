// Package authflow implements the auth screens: sign-in, administrator and
// customer registration, and password recovery.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivalora-gadget/console/internal/account"
	"github.com/ivalora-gadget/console/internal/forms"
	"github.com/ivalora-gadget/console/internal/supabase"
)

// ResetRedirectDelay is how long the reset screen shows its confirmation
// before moving on to sign-in
const ResetRedirectDelay = 2 * time.Second

// Backend is the part of the hosted client the screens use
type Backend interface {
	SignInWithPassword(ctx context.Context, email, password string) (*account.Session, error)
	SignUp(ctx context.Context, params supabase.SignUpParams) (*supabase.SignUpResult, error)
	SignOut(ctx context.Context) error
	SignOutLocal()
	FetchStatus(ctx context.Context, userID string) (account.Status, error)
	UpdatePassword(ctx context.Context, password string) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	InRecovery() bool
}

// Config configures the screens
type Config struct {
	// SiteURL is the public origin verification and recovery links point to
	SiteURL string
	Sink    ActivitySink
}

// Service runs the auth screens against the hosted service
type Service struct {
	backend Backend
	siteURL string
	sink    ActivitySink
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService creates the auth screens
func NewService(backend Backend, cfg Config, logger zerolog.Logger) *Service {
	sink := cfg.Sink
	if sink == nil {
		sink = noopSink{}
	}
	return &Service{
		backend: backend,
		siteURL: strings.TrimRight(cfg.SiteURL, "/"),
		sink:    sink,
		logger:  logger.With().Str("component", "authflow").Logger(),
		now:     time.Now,
	}
}

// LoginResult is a successful sign-in and where it leads
type LoginResult struct {
	Session  *account.Session
	Status   account.Status
	Redirect string
}

// Login signs in and applies the account-status gate. from is the
// destination recorded before the user was sent to sign-in, if any.
//
// Suspended and rejected accounts are signed out again before Login returns
// a *DeniedError.
func (s *Service) Login(ctx context.Context, form forms.LoginForm, from string) (*LoginResult, error) {
	if err := forms.Validate(form); err != nil {
		return nil, err
	}

	session, err := s.backend.SignInWithPassword(ctx, form.Email, form.Password)
	if err != nil {
		cerr := &CredentialError{Message: credentialMessage(err), Err: err}
		s.record(ctx, Activity{Kind: ActivityLoginFailure, Email: form.Email, Detail: cerr.Message})
		return nil, cerr
	}

	status, err := s.backend.FetchStatus(ctx, session.User.ID)
	if err != nil {
		// Unreadable status does not block sign-in; the guard re-checks later
		s.logger.Warn().Err(err).Str("user_id", session.User.ID).Msg("Failed to read account status after sign-in")
		status = account.StatusUnknown
	}

	decision := account.Decide(status, from)
	entry := Activity{Email: session.User.Email, UserID: session.User.ID, Detail: string(status)}

	if decision.TerminateSession {
		denied := &DeniedError{Status: status, Message: decision.Message}
		if err := s.backend.SignOut(ctx); err != nil {
			// A denied account never keeps a session, even when the revoke fails
			s.logger.Error().Err(err).Str("user_id", session.User.ID).Msg("Failed to revoke session of blocked account")
			s.backend.SignOutLocal()
			denied.SignOutErr = err
		}
		entry.Kind = ActivityLoginDenied
		s.record(ctx, entry)
		return nil, denied
	}

	entry.Kind = ActivityLoginSuccess
	if status == account.StatusPending {
		entry.Kind = ActivityLoginPending
	}
	s.record(ctx, entry)

	return &LoginResult{
		Session:  session,
		Status:   status,
		Redirect: decision.Redirect,
	}, nil
}

func credentialMessage(err error) string {
	switch {
	case supabase.IsEmailNotConfirmed(err):
		return msgEmailNotConfirmed
	case supabase.IsInvalidCredentials(err):
		return msgInvalidCredentials
	}
	return supabase.Message(err)
}

// RegistrationResult is a created account
type RegistrationResult struct {
	Email string
	// VerificationPending is true while the email still has to be confirmed;
	// no session exists yet
	VerificationPending bool
}

// RegisterAdmin creates an administrator account. New accounts start
// pending until approved.
func (s *Service) RegisterAdmin(ctx context.Context, form forms.AdminRegistrationForm) (*RegistrationResult, error) {
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	return s.register(ctx, ActivityRegisterAdmin, supabase.SignUpParams{
		Email:      form.Email,
		Password:   form.Password,
		Data:       map[string]any{"full_name": form.FullName},
		RedirectTo: s.siteURL,
	})
}

// RegisterCustomer creates a customer account
func (s *Service) RegisterCustomer(ctx context.Context, form forms.CustomerRegistrationForm) (*RegistrationResult, error) {
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	return s.register(ctx, ActivityRegisterCustomer, supabase.SignUpParams{
		Email:      form.Email,
		Password:   form.Password,
		Data:       map[string]any{"full_name": form.FullName},
		RedirectTo: s.siteURL + account.LoginPath,
	})
}

func (s *Service) register(ctx context.Context, kind ActivityKind, params supabase.SignUpParams) (*RegistrationResult, error) {
	result, err := s.backend.SignUp(ctx, params)
	if err != nil {
		message := supabase.Message(err)
		if supabase.IsAlreadyRegistered(err) {
			message = msgAlreadyRegistered
		}
		s.record(ctx, Activity{Kind: ActivityRegisterFailure, Email: params.Email, Detail: message})
		return nil, &CredentialError{Message: message, Err: err}
	}

	s.record(ctx, Activity{Kind: kind, Email: params.Email, UserID: result.User.ID})

	return &RegistrationResult{
		Email:               params.Email,
		VerificationPending: result.Session == nil,
	}, nil
}

// ResetPassword sets a new password. It needs the session opened by a
// recovery link.
func (s *Service) ResetPassword(ctx context.Context, form forms.ResetPasswordForm) error {
	if err := forms.Validate(form); err != nil {
		return err
	}
	if !s.backend.InRecovery() {
		return ErrRecoveryRequired
	}

	if err := s.backend.UpdatePassword(ctx, form.Password); err != nil {
		if errors.Is(err, supabase.ErrNoSession) {
			return ErrRecoveryRequired
		}
		s.record(ctx, Activity{Kind: ActivityPasswordResetFail, Detail: supabase.Message(err)})
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.record(ctx, Activity{Kind: ActivityPasswordReset})
	return nil
}

// ForgotPassword mails a recovery link that opens the reset screen
func (s *Service) ForgotPassword(ctx context.Context, form forms.ForgotPasswordForm) error {
	if err := forms.Validate(form); err != nil {
		return err
	}

	if err := s.backend.ResetPasswordForEmail(ctx, form.Email, s.siteURL+"/reset-password"); err != nil {
		return fmt.Errorf("failed to send recovery link: %w", err)
	}

	s.record(ctx, Activity{Kind: ActivityPasswordForgot, Email: form.Email})
	return nil
}

// Logout ends the session
func (s *Service) Logout(ctx context.Context) error {
	if err := s.backend.SignOut(ctx); err != nil {
		return err
	}
	s.record(ctx, Activity{Kind: ActivityLogout})
	return nil
}

func (s *Service) record(ctx context.Context, activity Activity) {
	activity.OccurredAt = s.now()
	if err := s.sink.Record(ctx, activity); err != nil {
		s.logger.Warn().Err(err).Str("kind", string(activity.Kind)).Msg("Failed to record activity")
	}
}
