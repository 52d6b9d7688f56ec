package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/taxi-explorer-go/internal/middleware"
	"github.com/jengzang/taxi-explorer-go/internal/models"
	"github.com/jengzang/taxi-explorer-go/internal/service"
	"github.com/jengzang/taxi-explorer-go/pkg/response"
)

// tokenTTL bounds the bearer token lifetime. Idle sessions are evicted
// separately; an outlived token just gets a 401.
const tokenTTL = 24 * time.Hour

// SessionHandler handles HTTP requests for dashboard sessions
type SessionHandler struct {
	sessions *service.SessionService
	secret   string
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.SessionService, secret string) *SessionHandler {
	return &SessionHandler{sessions: sessions, secret: secret}
}

// CreateSession handles POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	session, err := h.sessions.Create()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to create session", err)
		return
	}

	token, err := middleware.IssueSessionToken(h.secret, session.ID, tokenTTL)
	if err != nil {
		h.sessions.Remove(session.ID)
		response.Error(c, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}

	info, err := h.sessions.Describe(session.ID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to describe session", err)
		return
	}

	response.Success(c, models.CreateSessionResponse{Session: *info, Token: token})
}

// GetCurrent handles GET /api/v1/sessions/current
func (h *SessionHandler) GetCurrent(c *gin.Context) {
	session := middleware.SessionFrom(c)
	info, err := h.sessions.Describe(session.ID)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "Session expired", err)
		return
	}
	response.Success(c, info)
}

// DeleteCurrent handles DELETE /api/v1/sessions/current
func (h *SessionHandler) DeleteCurrent(c *gin.Context) {
	session := middleware.SessionFrom(c)
	h.sessions.Remove(session.ID)
	response.Success(c, gin.H{"deleted": session.ID})
}
