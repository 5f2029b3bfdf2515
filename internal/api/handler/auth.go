package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pairchat/backend/internal/config"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const anonIDClaim = "anon_id"

var errTokenMissing = errors.New("token missing")

// generateJWT генерує JWT з анонімним ID
func generateJWT(secret []byte, anonID string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		anonIDClaim: anonID,
		"exp":       now.Add(config.AnonTokenTTL).Unix(),
		"iss":       config.TokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// validateAndGetAnonID перевіряє підпис і термін дії та повертає AnonID.
func (h *Handler) validateAndGetAnonID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return h.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	anonID, ok := claims[anonIDClaim].(string)
	if !ok || anonID == "" {
		return "", fmt.Errorf("claim %q missing", anonIDClaim)
	}
	return anonID, nil
}

// tokenFrom looks for the token in the Authorization header, then the query
// string, then a form field. Browsers cannot set headers on WebSocket upgrades.
func tokenFrom(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer "), nil
	}
	if t := c.Query("token"); t != "" {
		return t, nil
	}
	if t := c.PostForm("token"); t != "" {
		return t, nil
	}
	return "", errTokenMissing
}

// authenticate resolves the caller's user id or aborts with 401.
func (h *Handler) authenticate(c *gin.Context) (string, bool) {
	tokenString, err := tokenFrom(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return "", false
	}
	anonID, err := h.validateAndGetAnonID(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return "", false
	}
	return anonID, true
}
