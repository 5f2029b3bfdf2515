package handler

import (
	"net/http"
	"time"

	"pairchat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Age                    int    `json:"age"`
	Gender                 string `json:"gender"`
	PartnerPreferredGender string `json:"partner_preferred_gender"`
}

// Register створює анонімного користувача з його вподобаннями та видає токен.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user := &models.User{
		Age:                    req.Age,
		Gender:                 req.Gender,
		PartnerPreferredGender: req.PartnerPreferredGender,
	}
	if err := user.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Users.SaveUser(user); err != nil {
		h.Log.Error("Failed to save user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	token, err := generateJWT(h.Secret, user.ID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}
	h.Log.Info("User registered", "user_id", user.ID)
	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID, "token": token})
}
