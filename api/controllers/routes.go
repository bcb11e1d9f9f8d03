package controllers

import (
	"SongBracket/api/middlewares"

	"github.com/gin-gonic/gin"
)

func (s *Server) initializeRoutes() {
	identity := middlewares.IdentityMiddleware(s.DB, middlewares.IdentityOptions{
		Secret:       s.Config.APISecret,
		DeviceSalt:   s.Config.AnonDeviceSalt,
		SecureCookie: s.Config.IsProduction(),
		Logger:       s.Logger,
	})
	sessionLimiter := middlewares.NewSessionRateLimiter()

	s.Router.GET("/healthz", s.Health)
	s.Router.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	v1 := s.Router.Group("/api/v1")
	{
		// Session routes
		sessions := v1.Group("/sessions", identity)
		sessions.POST("", sessionLimiter.Middleware(), s.CreateSession)
		sessions.GET("/:id", s.GetSession)
		sessions.GET("/:id/match", s.GetCurrentMatch)
		sessions.POST("/:id/votes", s.CastVote)

		// Song routes
		v1.GET("/songs/stats", s.GetSongStats)
	}
}
