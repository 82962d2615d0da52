package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/ivalora-gadget/console/internal/account"
	"github.com/ivalora-gadget/console/internal/session"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	viewKey         = "session_view"
)

var (
	ErrSessionLoading  = errors.New("session still loading")
	ErrNotSignedIn     = errors.New("not signed in")
	ErrAwaitingApprove = errors.New("account awaiting approval")
	ErrAccountBlocked  = errors.New("account blocked")
)

func setView(c *gin.Context, view session.View) {
	c.Set(viewKey, view)
}

// GetView returns the view the guard admitted the request with
func GetView(c *gin.Context) (session.View, bool) {
	v, exists := c.Get(viewKey)
	if !exists {
		return session.View{}, false
	}

	view, ok := v.(session.View)
	return view, ok
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, body gin.H) {
	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Request rejected")
	c.JSON(statusCode, body)
	c.Abort()
}

// requestIDMiddleware tags each request with a ULID unless the caller sent one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequireApproved admits only signed-in accounts the status gate lets
// through. Suspended and rejected accounts are signed out, locally if the
// remote revoke fails.
func RequireApproved(state SessionState, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		view := state.View()

		if view.Loading {
			respondWithError(c, log, http.StatusServiceUnavailable, ErrSessionLoading, gin.H{
				"error": "Sesi sedang dimuat",
			})
			return
		}

		if !view.SignedIn() {
			respondWithError(c, log, http.StatusUnauthorized, ErrNotSignedIn, gin.H{
				"error":    "Unauthorized",
				"redirect": account.LoginPath,
				"from":     c.Request.URL.Path,
			})
			return
		}

		// Status is unknown until the detail fetch for a new identity lands
		if view.DetailsPending {
			respondWithError(c, log, http.StatusServiceUnavailable, ErrSessionLoading, gin.H{
				"error": "Sesi sedang dimuat",
			})
			return
		}

		decision := account.Decide(view.Status, c.Request.URL.Path)

		if decision.TerminateSession {
			if err := state.Terminate(c.Request.Context()); err != nil {
				log.Error().Err(err).Str("user_id", view.User.ID).Msg("Failed to revoke session of blocked account")
			}
			respondWithError(c, log, http.StatusForbidden, ErrAccountBlocked, gin.H{
				"error":    decision.Message,
				"blocked":  true,
				"status":   view.Status,
				"notice":   account.BlockedNotice(view.Status),
				"redirect": account.LoginPath,
			})
			return
		}

		if decision.Redirect == account.WaitingApprovalPath {
			respondWithError(c, log, http.StatusForbidden, ErrAwaitingApprove, gin.H{
				"error":    "Akun Anda menunggu persetujuan administrator.",
				"status":   view.Status,
				"redirect": account.WaitingApprovalPath,
			})
			return
		}

		setView(c, view)
		c.Next()
	}
}
