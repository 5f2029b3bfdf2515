package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"pairchat/backend/internal/chathub"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is the allowance for form fields and boundaries on top of
// the picture itself.
const multipartOverhead = 64 << 10

// SendPicture приймає зображення та пересилає його партнерові по чату.
func (h *Handler) SendPicture(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxPictureBytes+multipartOverhead)
	if err := c.Request.ParseMultipartForm(h.MaxPictureBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Picture is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("picture")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "picture is required"})
		return
	}
	defer file.Close()

	if header.Size > h.MaxPictureBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Picture is too large"})
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, h.MaxPictureBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read picture"})
		return
	}
	if int64(len(data)) > h.MaxPictureBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Picture is too large"})
		return
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Only images can be sent", "mime": mime.String()})
		return
	}

	switch err := h.Hub.Deliver(userID, chathub.PictureMessage(data)); {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": "delivered", "mime": mime.String()})
	case errors.Is(err, chathub.ErrNotInSession):
		c.JSON(http.StatusConflict, gin.H{"error": "You are not in a chat"})
	default:
		h.Log.Warn("Picture delivery failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deliver picture"})
	}
}
