package session

import (
	"encoding/json"

	"github.com/ivalora-gadget/console/internal/account"
)

// View is a point-in-time copy of the synchronized auth state.
//
// Status and Role are empty while unknown (signed out, not fetched yet, or the
// fetch failed). An empty Role on a resolved account means the user holds no
// administrative role.
type View struct {
	Session *account.Session
	User    *account.Identity
	Status  account.Status
	Role    account.Role
	Loading bool

	// DetailsPending is set while status and role of a newly seen identity
	// are still being read
	DetailsPending bool
}

// SignedIn reports whether the view carries a session
func (v View) SignedIn() bool {
	return v.Session != nil
}

// IsAdmin reports whether the resolved role is administrative
func (v View) IsAdmin() bool {
	return v.Role == account.RoleSuperAdmin || v.Role == account.RoleAdmin
}

func (v View) clone() View {
	out := v
	out.Session = v.Session.Clone()
	if v.User != nil {
		user := *v.User
		out.User = &user
	}
	return out
}

type viewJSON struct {
	Session   *account.Session  `json:"session"`
	User      *account.Identity `json:"user"`
	Status    *account.Status   `json:"status"`
	Role      *account.Role     `json:"role"`
	IsLoading bool              `json:"is_loading"`
	Pending   bool              `json:"details_pending"`
}

// MarshalJSON renders unknown status and role as null
func (v View) MarshalJSON() ([]byte, error) {
	out := viewJSON{
		Session:   v.Session,
		User:      v.User,
		IsLoading: v.Loading,
		Pending:   v.DetailsPending,
	}
	if v.Status != account.StatusUnknown {
		status := v.Status
		out.Status = &status
	}
	if v.Role != account.RoleNone {
		role := v.Role
		out.Role = &role
	}
	return json.Marshal(out)
}
