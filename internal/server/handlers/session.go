package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/repository"
)

// UserIDHeader carries the authenticated user id set by the auth gateway.
const UserIDHeader = "X-User-ID"

const sessionKey = "session"

// ProfileGetter resolves the profile behind a user id.
type ProfileGetter interface {
	GetProfile(ctx context.Context, id string) (models.Profile, error)
}

// SessionMiddleware resolves the caller's session once per request.
func SessionMiddleware(profiles ProfileGetter, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + UserIDHeader})
			return
		}

		profile, err := profiles.GetProfile(c.Request.Context(), userID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		case err != nil:
			logger.Error("profile lookup failed", zap.String("user_id", userID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unable to load profile"})
			return
		}

		session, err := models.SessionFor(profile)
		if err != nil {
			logger.Warn("profile has an unknown role", zap.String("user_id", userID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not allowed"})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// RequireAdmin rejects non-admin sessions.
func RequireAdmin(c *gin.Context) {
	if !sessionFrom(c).IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	c.Next()
}

func sessionFrom(c *gin.Context) models.Session {
	v, _ := c.Get(sessionKey)
	s, _ := v.(models.Session)
	return s
}
