package httpctx

import "github.com/gin-gonic/gin"

const (
	userIDKey = "userID"
	anonIDKey = "anonID"
)

func SetUserID(c *gin.Context, userID string) {
	c.Set(userIDKey, userID)
}

func SetAnonID(c *gin.Context, anonID string) {
	c.Set(anonIDKey, anonID)
}

// CurrentUserID retrieves the authenticated user key from Gin context if present.
func CurrentUserID(c *gin.Context) (string, bool) {
	return stringValue(c, userIDKey)
}

// CurrentAnonID retrieves the anonymous device token if the request has no user.
func CurrentAnonID(c *gin.Context) (string, bool) {
	return stringValue(c, anonIDKey)
}

func stringValue(c *gin.Context, key string) (string, bool) {
	val, exists := c.Get(key)
	if !exists {
		return "", false
	}
	s, ok := val.(string)
	return s, ok && s != ""
}
