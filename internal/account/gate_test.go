package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		status    Status
		from      string
		redirect  string
		terminate bool
		message   string
	}{
		{name: "pending waits for approval", status: StatusPending, from: "/pos", redirect: WaitingApprovalPath},
		{name: "suspended is terminated", status: StatusSuspended, terminate: true, message: msgSuspended},
		{name: "rejected is terminated", status: StatusRejected, from: "/pos", terminate: true, message: msgRejected},
		{name: "active goes home by default", status: StatusActive, redirect: HomePath},
		{name: "active keeps requested destination", status: StatusActive, from: "/inventory", redirect: "/inventory"},
		{name: "unknown status passes through", status: Status("archived"), from: "/reports", redirect: "/reports"},
		{name: "missing status passes through", status: "", redirect: HomePath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.status, tt.from)

			assert.Equal(t, tt.redirect, d.Redirect)
			assert.Equal(t, tt.terminate, d.TerminateSession)
			assert.Equal(t, tt.terminate, d.Blocked)
			assert.Equal(t, tt.message, d.Message)
		})
	}
}

func TestBlockedNotice(t *testing.T) {
	assert.Equal(t, "Akun Anda telah disuspend.", BlockedNotice(StatusSuspended))
	assert.Equal(t, "Akun Anda ditolak oleh administrator.", BlockedNotice(StatusRejected))
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusActive, ParseStatus(" Active "))
	assert.True(t, ParseStatus("pending").Known())
	assert.False(t, ParseStatus("archived").Known())
	assert.Equal(t, RoleSuperAdmin, ParseRole("SUPER_ADMIN"))
}
