package authflow

import (
	"context"
	"time"
)

// ActivityKind names an auth outcome on this terminal
type ActivityKind string

const (
	ActivityLoginSuccess      ActivityKind = "login.success"
	ActivityLoginPending      ActivityKind = "login.pending"
	ActivityLoginDenied       ActivityKind = "login.denied"
	ActivityLoginFailure      ActivityKind = "login.failure"
	ActivityRegisterAdmin     ActivityKind = "register.admin"
	ActivityRegisterCustomer  ActivityKind = "register.customer"
	ActivityRegisterFailure   ActivityKind = "register.failure"
	ActivityPasswordReset     ActivityKind = "password.reset"
	ActivityPasswordResetFail ActivityKind = "password.reset.failure"
	ActivityPasswordForgot    ActivityKind = "password.forgot"
	ActivityLogout            ActivityKind = "logout"
)

// Activity describes one auth outcome
type Activity struct {
	Kind       ActivityKind
	Email      string
	UserID     string
	Detail     string
	OccurredAt time.Time
}

// ActivitySink consumes auth outcomes
type ActivitySink interface {
	Record(ctx context.Context, activity Activity) error
}

// ActivitySinkFunc adapts a function to ActivitySink
type ActivitySinkFunc func(ctx context.Context, activity Activity) error

// Record implements ActivitySink
func (f ActivitySinkFunc) Record(ctx context.Context, activity Activity) error {
	if f == nil {
		return nil
	}
	return f(ctx, activity)
}

type noopSink struct{}

func (noopSink) Record(context.Context, Activity) error {
	return nil
}
