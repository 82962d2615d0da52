package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivalora-gadget/console/internal/account"
	"github.com/ivalora-gadget/console/internal/authflow"
	"github.com/ivalora-gadget/console/internal/forms"
	"github.com/ivalora-gadget/console/internal/supabase"
)

// LoginRequest represents a login request
type LoginRequest struct {
	forms.LoginForm
	// From is the page the user tried to open before being sent to sign-in
	From string `json:"from"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Redirect string            `json:"redirect"`
	Status   *account.Status   `json:"status"`
	User     *account.Identity `json:"user"`
}

// RegistrationResponse represents a created account
type RegistrationResponse struct {
	Email               string `json:"email"`
	VerificationPending bool   `json:"verification_pending"`
}

// RecoveryRequest carries a verification or recovery redirect link
type RecoveryRequest struct {
	Link string `json:"link"`
}

// ResetPasswordResponse tells the screen where to go once the password is set
type ResetPasswordResponse struct {
	Message         string `json:"message"`
	Redirect        string `json:"redirect"`
	RedirectAfterMS int64  `json:"redirect_after_ms"`
}

// respondWithFlowError maps an auth flow error to a response
func (s *Server) respondWithFlowError(c *gin.Context, err error) {
	body := gin.H{"error": authflow.Message(err)}

	var verr *forms.ValidationError
	var cerr *authflow.CredentialError
	var derr *authflow.DeniedError
	switch {
	case errors.As(err, &verr):
		body["fields"] = verr.Fields
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.As(err, &derr):
		body["blocked"] = true
		body["status"] = derr.Status
		body["notice"] = account.BlockedNotice(derr.Status)
		c.JSON(http.StatusForbidden, body)
	case errors.As(err, &cerr):
		status := http.StatusUnauthorized
		if supabase.IsAlreadyRegistered(err) {
			status = http.StatusConflict
		}
		c.JSON(status, body)
	case errors.Is(err, authflow.ErrRecoveryRequired):
		c.JSON(http.StatusForbidden, body)
	default:
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Auth flow failed")
		c.JSON(http.StatusBadGateway, body)
	}
}

// @Summary Login
// @Description Sign in with email and password, then apply the account-status gate
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.auth.Login(c.Request.Context(), req.LoginForm, req.From)
	if err != nil {
		s.respondWithFlowError(c, err)
		return
	}

	s.logger.Info().
		Str("user_id", result.Session.User.ID).
		Str("status", string(result.Status)).
		Msg("User logged in")

	resp := LoginResponse{Redirect: result.Redirect, User: &result.Session.User}
	if result.Status != account.StatusUnknown {
		resp.Status = &result.Status
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Register administrator
// @Description Create an administrator account; it starts pending approval
// @Tags auth
// @Accept json
// @Produce json
// @Param request body forms.AdminRegistrationForm true "Registration"
// @Success 201 {object} RegistrationResponse
// @Failure 409 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/auth/register [post]
func (s *Server) registerAdmin(c *gin.Context) {
	var req forms.AdminRegistrationForm
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.auth.RegisterAdmin(c.Request.Context(), req)
	if err != nil {
		s.respondWithFlowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{
		Email:               result.Email,
		VerificationPending: result.VerificationPending,
	})
}

// @Summary Register customer
// @Tags auth
// @Accept json
// @Produce json
// @Param request body forms.CustomerRegistrationForm true "Registration"
// @Success 201 {object} RegistrationResponse
// @Router /api/auth/register-customer [post]
func (s *Server) registerCustomer(c *gin.Context) {
	var req forms.CustomerRegistrationForm
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.auth.RegisterCustomer(c.Request.Context(), req)
	if err != nil {
		s.respondWithFlowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{
		Email:               result.Email,
		VerificationPending: result.VerificationPending,
	})
}

// @Summary Request a password reset link
// @Tags auth
// @Accept json
// @Produce json
// @Param request body forms.ForgotPasswordForm true "Email"
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/forgot-password [post]
func (s *Server) forgotPassword(c *gin.Context) {
	var req forms.ForgotPasswordForm
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.auth.ForgotPassword(c.Request.Context(), req); err != nil {
		s.respondWithFlowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link reset password telah dikirim ke email Anda."})
}

// @Summary Adopt a redirect link
// @Description Opens the session carried by a verification or recovery link
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RecoveryRequest true "Link"
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/recovery [post]
func (s *Server) adoptLink(c *gin.Context) {
	var req RecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Link == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "link is required"})
		return
	}

	current, err := s.links.SessionFromURL(req.Link)
	if err != nil {
		message := supabase.Message(err)
		if errors.Is(err, supabase.ErrNoTokenInLink) {
			message = authflow.Message(authflow.ErrRecoveryRequired)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     current.User,
		"recovery": s.links.InRecovery(),
	})
}

// @Summary Reset password
// @Description Set a new password from a recovery session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body forms.ResetPasswordForm true "New password"
// @Success 200 {object} ResetPasswordResponse
// @Failure 403 {object} map[string]interface{}
// @Router /api/auth/reset-password [post]
func (s *Server) resetPassword(c *gin.Context) {
	var req forms.ResetPasswordForm
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.auth.ResetPassword(c.Request.Context(), req); err != nil {
		s.respondWithFlowError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResetPasswordResponse{
		Message:         "Password diperbarui",
		Redirect:        account.LoginPath,
		RedirectAfterMS: authflow.ResetRedirectDelay.Milliseconds(),
	})
}

// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	if err := s.auth.Logout(c.Request.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign out")
		c.JSON(http.StatusBadGateway, gin.H{"error": supabase.Message(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"redirect": account.LoginPath})
}
