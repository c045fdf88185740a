package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/shivwng1/lvkit-main/internal/config"
	"github.com/shivwng1/lvkit-main/internal/domain"
	"github.com/shivwng1/lvkit-main/internal/token"
)

const serviceName = "voice-assistant-frontend"

type Handlers struct {
	cfg    *config.Config
	issuer *token.Issuer
}

type TokenRequest struct {
	RoomName        string `json:"room_name" binding:"required"`
	ParticipantName string `json:"participant_name" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

func (h *Handlers) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_name and participant_name are required"})
		return
	}
	room, err := domain.NewRoomName(req.RoomName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	identity, err := domain.NewIdentity(req.ParticipantName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cred, err := h.issuer.Issue(room, identity)
	if errors.Is(err, token.ErrMissingCredentials) {
		log.Error().Str("module", "adapters.http").Msg("LiveKit credentials not found in environment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "LiveKit credentials not configured"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("token generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	log.Info().Str("module", "adapters.http").Str("room", string(room)).Str("identity", string(identity)).Msg("token issued")
	c.JSON(http.StatusOK, TokenResponse{Token: cred.Token})
}

func (h *Handlers) Config(c *gin.Context) {
	c.JSON(http.StatusOK, domain.ClientConfig{
		LiveKitURL:      h.cfg.LiveKit.URL,
		RoomName:        domain.RoomName(h.cfg.RoomName),
		ParticipantName: domain.IdentityPrefix,
	})
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Service:   serviceName,
	})
}
