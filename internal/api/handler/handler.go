package handler

import (
	"log/slog"
	"net/http"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/config"
	"pairchat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// UserStore is the part of storage the HTTP API needs. Tokens are only
// issued at registration, so the API never looks users up by id.
type UserStore interface {
	SaveUser(user *models.User) error
}

// Handler містить посилання на ChatHub
type Handler struct {
	Hub             *chathub.ManagerService
	Users           UserStore
	Secret          []byte
	MaxPictureBytes int64
	SendBufferSize  int
	Log             *slog.Logger
}

func NewHandler(hub *chathub.ManagerService, users UserStore, cfg *config.Config, log *slog.Logger) *Handler {
	return &Handler{
		Hub:             hub,
		Users:           users,
		Secret:          []byte(cfg.JWTSecret),
		MaxPictureBytes: int64(cfg.MaxPictureBytes),
		SendBufferSize:  cfg.SendBufferSize,
		Log:             log,
	}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/healthz", h.Health)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api")
	api.POST("/register", h.Register)
	api.POST("/sendPicture", h.SendPicture)
}

// Health reports engine counters.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "engine": h.Hub.Engine.Stats()})
}
