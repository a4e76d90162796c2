package handler

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"truthordare/backend/internal/config"
	"truthordare/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "truthordare-service"

	ctxUserID   = "uid"
	ctxUsername = "username"
)

// SessionClaims carry the display identity a client plays as.
type SessionClaims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (h *Handler) generateJWT(userID, username string) (string, error) {
	now := h.Now()
	claims := SessionClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.Secret)
}

func (h *Handler) parseJWT(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return h.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.Now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Username == "" {
		return nil, errors.New("token has no username")
	}
	return claims, nil
}

type sessionRequest struct {
	Name string `json:"name"`
}

// CreateSession issues a token for a chosen display name.
func (h *Handler) CreateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "validation"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(name) < config.MinUsernameLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "name must be at least 3 characters",
			"code":  "validation",
		})
		return
	}

	user := models.User{ID: uuid.NewString(), Username: name}
	if err := h.Rooms.Storage.SaveUser(&user); err != nil {
		h.Log.WithError(err).Warn("Failed to persist user, issuing token anyway")
	}

	token, err := h.generateJWT(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "uid": user.ID, "username": user.Username})
}

// RequireIdentity accepts a bearer token or, for browsers opening a
// WebSocket, a token query parameter.
func (h *Handler) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}
		claims, err := h.parseJWT(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

// identity is the name a request plays as inside rooms.
func identity(c *gin.Context) string {
	return c.GetString(ctxUsername)
}
