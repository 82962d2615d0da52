package account

const (
	// HomePath is where approved accounts land when no destination was recorded
	HomePath = "/"
	// WaitingApprovalPath holds authenticated accounts that are not approved yet
	WaitingApprovalPath = "/waiting-approval"
	// LoginPath is the entry point for signed-out users
	LoginPath = "/login"
)

const (
	msgSuspended = "Akun Anda telah disuspend. Hubungi administrator."
	msgRejected  = "Akun Anda ditolak. Hubungi administrator."

	noticeSuspended = "Akun Anda telah disuspend."
	noticeRejected  = "Akun Anda ditolak oleh administrator."
)

// Decision is the outcome of gating an authenticated account on its status
type Decision struct {
	// Redirect is empty when the session must be terminated
	Redirect         string `json:"redirect,omitempty"`
	TerminateSession bool   `json:"terminate_session"`
	Blocked          bool   `json:"blocked"`
	Message          string `json:"message,omitempty"`
}

// Decide maps an account status to where the user lands after credential
// verification. from is the originally requested destination.
//
// Login and the route guard both call this, so the two never disagree.
func Decide(status Status, from string) Decision {
	switch status {
	case StatusPending:
		return Decision{Redirect: WaitingApprovalPath}
	case StatusSuspended:
		return Decision{TerminateSession: true, Blocked: true, Message: msgSuspended}
	case StatusRejected:
		return Decision{TerminateSession: true, Blocked: true, Message: msgRejected}
	}

	if from == "" {
		from = HomePath
	}
	return Decision{Redirect: from}
}

// BlockedNotice is the banner shown on the login screen after the guard
// bounced a denied account.
func BlockedNotice(status Status) string {
	if status == StatusSuspended {
		return noticeSuspended
	}
	return noticeRejected
}
