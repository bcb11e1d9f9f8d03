package controllers

import (
	"errors"
	"net/http"

	"SongBracket/api/tournament"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tournament.ErrSessionNotFound),
		errors.Is(err, tournament.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, tournament.ErrInsufficientItems):
		return http.StatusServiceUnavailable
	case errors.Is(err, tournament.ErrBracketTooDeep):
		return http.StatusInternalServerError
	}
	switch tournament.Kind(err) {
	case tournament.KindInput:
		return http.StatusBadRequest
	case tournament.KindState:
		return http.StatusConflict
	case tournament.KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (server *Server) respondError(c *gin.Context, event string, err error) {
	status := statusFor(err)
	kind := tournament.Kind(err)

	if kind == tournament.KindTransient {
		c.Header("Retry-After", "1")
	}
	if status >= http.StatusInternalServerError && kind != tournament.KindTransient {
		server.Logger.Error("request failed",
			"event", event,
			"module", "controllers",
			"path", c.FullPath(),
			"error", err.Error(),
		)
		sentry.CaptureException(err)
	}

	msg := err.Error()
	if kind == tournament.KindInternal {
		msg = "Internal server error"
	}
	c.JSON(status, gin.H{"error": msg, "kind": string(kind)})
}
