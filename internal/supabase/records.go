package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ivalora-gadget/console/internal/account"
)

const (
	tableProfiles = "user_profiles"
	tableRoles    = "user_roles"
)

// readRecord reads one column of the row whose keyColumn equals key. The
// boolean is false when no row matched.
func (c *Client) readRecord(ctx context.Context, table, keyColumn, key, column string) (string, bool, error) {
	token, err := c.accessToken()
	if err != nil {
		return "", false, err
	}

	query := url.Values{}
	query.Set("select", column)
	query.Set(keyColumn, "eq."+key)
	query.Set("limit", "1")

	var rows []map[string]any
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("%s/%s", restPrefix, table),
		query:  query,
		token:  token,
	}, &rows); err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", table, err)
	}

	if len(rows) == 0 {
		return "", false, nil
	}

	value, _ := rows[0][column].(string)
	return value, true, nil
}

// FetchStatus reads the approval status of a user. ErrNoRows means the
// profile does not exist (or is not visible to this session).
func (c *Client) FetchStatus(ctx context.Context, userID string) (account.Status, error) {
	value, found, err := c.readRecord(ctx, tableProfiles, "id", userID, "status")
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNoRows
	}
	return account.ParseStatus(value), nil
}

// FetchRole reads the administrative role of a user. A user without a role
// row has RoleNone.
func (c *Client) FetchRole(ctx context.Context, userID string) (account.Role, error) {
	value, found, err := c.readRecord(ctx, tableRoles, "user_id", userID, "role")
	if err != nil {
		return account.RoleNone, err
	}
	if !found {
		return account.RoleNone, nil
	}
	return account.ParseRole(value), nil
}
