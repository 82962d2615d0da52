package supabase

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ivalora-gadget/console/internal/account"
)

// accessClaims are the fields of a hosted access token the console reads
type accessClaims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// parseAccessToken decodes the claims of an access token without verifying
// its signature. The hosted service verifies tokens on every request.
func parseAccessToken(token string) (*accessClaims, error) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("access token has no subject")
	}
	return claims, nil
}

func (a *accessClaims) identity() account.Identity {
	return account.Identity{
		ID:       a.Subject,
		Email:    a.Email,
		FullName: fullName(a.UserMetadata),
	}
}

func (a *accessClaims) expiresAt() time.Time {
	if a.ExpiresAt == nil {
		return time.Time{}
	}
	return a.ExpiresAt.Time
}

func fullName(metadata map[string]any) string {
	if name, ok := metadata["full_name"].(string); ok {
		return name
	}
	return ""
}
