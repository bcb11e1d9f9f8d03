package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"SongBracket/api/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	AnonymousDeviceCookieName = "songbracket_device_id"
	deviceReuseWindow         = 30 * 24 * time.Hour
)

type deviceTracker struct {
	db     *gorm.DB
	salt   string
	secure bool
}

// resolve returns the caller's device token. A valid cookie wins; without
// one, a device recently seen with the same user agent and IP is reused.
func (d deviceTracker) resolve(c *gin.Context) (string, error) {
	uaHash := d.fingerprint(c.Request.UserAgent())
	ipHash := d.fingerprint(c.ClientIP())
	ctx := c.Request.Context()

	deviceID := ""
	if cookie, err := c.Cookie(AnonymousDeviceCookieName); err == nil {
		if parsed, err := uuid.Parse(strings.TrimSpace(cookie)); err == nil {
			deviceID = parsed.String()
		}
	}
	if deviceID == "" && uaHash != "" && ipHash != "" {
		cutoff := time.Now().Add(-deviceReuseWindow)
		var existing models.AnonymousDevice
		if err := d.db.WithContext(ctx).
			Where("user_agent_hash = ? AND ip_hash = ? AND last_seen_at >= ?", uaHash, ipHash, cutoff).
			Order("last_seen_at DESC").
			First(&existing).Error; err == nil {
			deviceID = existing.DeviceID
		}
	}
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	if err := d.upsert(c, deviceID, uaHash, ipHash); err != nil {
		return "", err
	}
	d.setCookie(c, deviceID)
	return deviceID, nil
}

func (d deviceTracker) upsert(c *gin.Context, deviceID, userAgentHash, ipHash string) error {
	if deviceID == "" {
		return errors.New("device_id required")
	}
	now := time.Now()
	record := models.AnonymousDevice{
		DeviceID:      deviceID,
		UserAgentHash: userAgentHash,
		IPHash:        ipHash,
		CreatedAt:     now,
		LastSeenAt:    now,
	}
	return d.db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen_at", "user_agent_hash", "ip_hash"}),
	}).Create(&record).Error
}

func (d deviceTracker) fingerprint(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(d.salt + ":" + trimmed))
	return hex.EncodeToString(hash[:])
}

func (d deviceTracker) setCookie(c *gin.Context, deviceID string) {
	sameSite := http.SameSiteLaxMode
	if d.secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     AnonymousDeviceCookieName,
		Value:    deviceID,
		Path:     "/",
		MaxAge:   31536000,
		HttpOnly: true,
		SameSite: sameSite,
		Secure:   d.secure,
	})
}
