package middlewares

import (
	"errors"
	"log/slog"
	"net/http"

	"SongBracket/api/auth"
	"SongBracket/api/utils/httpctx"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// IdentityOptions configures IdentityMiddleware.
type IdentityOptions struct {
	Secret       string
	DeviceSalt   string
	SecureCookie bool
	Logger       *slog.Logger
}

// IdentityMiddleware attaches exactly one identity to the request: the JWT
// subject when a bearer token is present, else an anonymous device token.
// A token that is present but invalid is rejected rather than silently
// downgraded to anonymous.
func IdentityMiddleware(db *gorm.DB, opts IdentityOptions) gin.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	devices := deviceTracker{db: db, salt: opts.DeviceSalt, secure: opts.SecureCookie}

	return func(c *gin.Context) {
		subject, err := auth.ExtractSubject(c.Request, opts.Secret)
		switch {
		case err == nil:
			httpctx.SetUserID(c, subject)
			c.Next()
			return
		case !errors.Is(err, auth.ErrNoToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		deviceID, err := devices.resolve(c)
		if err != nil {
			logger.Error("anonymous device lookup failed",
				"event", "identity_device_failed",
				"module", "middlewares",
				"error", err.Error(),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not identify voter"})
			return
		}
		httpctx.SetAnonID(c, deviceID)
		c.Next()
	}
}

// This enables us interact with the frontend
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		for _, o := range allowedOrigins {
			if o == origin {
				c.Writer.Header().Set("Access-Control-Allow-Origin", o)
				break
			}
		}

		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Authorization, Content-Length, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
