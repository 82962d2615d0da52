package authflow

import (
	"errors"

	"github.com/ivalora-gadget/console/internal/account"
	"github.com/ivalora-gadget/console/internal/forms"
	"github.com/ivalora-gadget/console/internal/supabase"
)

const (
	msgEmailNotConfirmed  = "Email belum diverifikasi. Periksa inbox Anda."
	msgInvalidCredentials = "Email atau password salah."
	msgAlreadyRegistered  = "Email ini sudah terdaftar."
	msgRecoveryRequired   = "Link reset password tidak valid atau sudah kadaluarsa."
)

// ErrRecoveryRequired is returned by ResetPassword without a recovery session
var ErrRecoveryRequired = errors.New("password reset requires a recovery session")

// CredentialError is a rejection by the hosted service, with the message the
// screen shows
type CredentialError struct {
	Message string
	Err     error
}

func (e *CredentialError) Error() string {
	return e.Message
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// DeniedError means the credentials were valid but the account may not sign
// in. The session has already been ended.
type DeniedError struct {
	Status  account.Status
	Message string
	// SignOutErr is set when ending the session failed
	SignOutErr error
}

func (e *DeniedError) Error() string {
	return e.Message
}

// Message returns the text a screen shows for err
func Message(err error) string {
	if err == nil {
		return ""
	}

	var verr *forms.ValidationError
	var cerr *CredentialError
	var derr *DeniedError
	switch {
	case errors.As(err, &verr):
		return verr.First()
	case errors.As(err, &cerr):
		return cerr.Message
	case errors.As(err, &derr):
		return derr.Message
	case errors.Is(err, ErrRecoveryRequired):
		return msgRecoveryRequired
	}
	return supabase.Message(err)
}
