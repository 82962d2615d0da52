package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ivalora-gadget/console/internal/session"
)

// @Summary Current session
// @Description The synchronized session, account status and role
// @Tags session
// @Produce json
// @Param wait query bool false "Block until the initial session check has settled"
// @Success 200 {object} session.View
// @Failure 503 {object} map[string]interface{}
// @Router /api/session [get]
func (s *Server) getSession(c *gin.Context) {
	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		if err := s.session.WaitReady(c.Request.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Session did not settle")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Sesi sedang dimuat"})
			return
		}
	}

	c.JSON(http.StatusOK, s.session.View())
}

// @Summary Refresh account details
// @Description Re-read status and role for the signed-in account
// @Tags session
// @Produce json
// @Success 200 {object} session.View
// @Router /api/session/refresh [post]
func (s *Server) refreshSession(c *gin.Context) {
	if err := s.session.Refresh(c.Request.Context()); err != nil {
		if errors.Is(err, session.ErrClosed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Console is shutting down"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to refresh account details")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, s.session.View())
}

// @Summary Current user
// @Description The approved account behind this terminal
// @Tags session
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	view, ok := GetView(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     view.User,
		"status":   view.Status,
		"role":     view.Role,
		"is_admin": view.IsAdmin(),
	})
}

// @Summary Activity journal
// @Tags activity
// @Produce json
// @Param limit query int false "Maximum entries"
// @Success 200 {array} models.ActivityEntry
// @Router /api/activity [get]
func (s *Server) listActivity(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := s.activity.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list activity")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// @Summary Activity entry
// @Tags activity
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} models.ActivityEntry
// @Failure 404 {object} map[string]interface{}
// @Router /api/activity/{id} [get]
func (s *Server) getActivity(c *gin.Context) {
	entry, err := s.activity.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Activity not found"})
			return
		}
		s.logger.Error().Err(err).Str("id", c.Param("id")).Msg("Failed to get activity")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, entry)
}
