package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vigil-scan-server/internal/domain"
)

// handleAnalyze runs the analysis pipeline for one scan.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req domain.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid request body", err)
		return
	}
	if req.ExtractedText == "" && req.ImageDataURI == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput,
			"Either extracted_text or image_data_uri is required",
			domain.NewValidationError("extracted_text", "either extracted_text or image_data_uri must be provided", nil))
		return
	}

	resp, err := s.analysis.Analyze(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptySession):
			s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "session_id is required", nil)
		default:
			s.logger.WithFields(logrus.Fields{
				"session_id": req.SessionID,
				"error":      err,
			}).Error("Analysis failed")
			s.respondError(c, http.StatusBadGateway, domain.ErrAnalysisFailed, domain.MsgAnalysisFailed, errors.Unwrap(err))
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleHistory returns the session's recent scans, newest first. A
// session with no scans yet gets an empty list, not an error.
func (s *Server) handleHistory(c *gin.Context) {
	sessionID := c.Param("sessionID")

	records, err := s.analysis.History(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptySession):
			s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "session ID is required", nil)
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "records": []domain.ScanRecord{}})
		default:
			s.logger.WithError(err).Error("Failed to load scan history")
			s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to load scan history", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "records": records})
}

// handleGetProfile returns the stored medical profile for a session.
func (s *Server) handleGetProfile(c *gin.Context) {
	sessionID := c.Param("sessionID")

	profile, err := s.profiles.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrInvalidInput, "Profile not found", nil)
			return
		}
		s.logger.WithError(err).Error("Failed to load user profile")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to load profile", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// handleUpdateProfile merges the submitted partial profile into the
// stored one and returns the merged result.
func (s *Server) handleUpdateProfile(c *gin.Context) {
	sessionID := c.Param("sessionID")

	var partial domain.UserProfile
	if err := c.ShouldBindJSON(&partial); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid profile body", err)
		return
	}

	merged, err := s.profiles.Update(c.Request.Context(), sessionID, &partial)
	if err != nil {
		s.logger.WithError(err).Error("Failed to update user profile")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to update profile", err)
		return
	}

	c.JSON(http.StatusOK, merged)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	checks := gin.H{}

	if s.health.Database != nil {
		if err := s.health.Database(c.Request.Context()); err != nil {
			status = "degraded"
			checks["database"] = err.Error()
		} else {
			checks["database"] = "ok"
		}
	}
	if s.health.Cache != nil {
		if err := s.health.Cache(c.Request.Context()); err != nil {
			status = "degraded"
			checks["cache"] = err.Error()
		} else {
			checks["cache"] = "ok"
		}
	}
	if s.health.Breakers != nil {
		checks["circuit_breakers"] = s.health.Breakers()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now(),
		"version":   "1.0.0",
		"checks":    checks,
	})
}

// respondError writes a standardized error body. The underlying cause is
// exposed only in development mode.
func (s *Server) respondError(c *gin.Context, status int, code, message string, cause error) {
	details := ""
	if cause != nil && s.configManager.IsDevelopment() {
		details = cause.Error()
	}

	requestID := c.GetString("request_id")
	c.JSON(status, gin.H{
		"error": domain.NewAPIError(code, message, details, requestID),
	})
}
