package controllers

import (
	"net/http"

	"SongBracket/api/models"
	"SongBracket/api/tournament"
	"SongBracket/api/utils/httpctx"

	"github.com/gin-gonic/gin"
)

type createSessionRequest struct {
	Preference string `json:"preference"`
}

// Round and Match echo the cursor of the match being voted on.
type castVoteRequest struct {
	SongID string `json:"song_id"`
	Round  int    `json:"round" binding:"required,min=1"`
	Match  int    `json:"match" binding:"required,min=1"`
}

func requestIdentity(c *gin.Context) tournament.Identity {
	if userID, ok := httpctx.CurrentUserID(c); ok {
		return tournament.UserIdentity(userID)
	}
	anonID, _ := httpctx.CurrentAnonID(c)
	return tournament.AnonIdentity(anonID)
}

// ownedSession loads :id and hides sessions owned by someone else.
func (server *Server) ownedSession(c *gin.Context) (*models.VotingSession, bool) {
	s, err := server.Engine.Session(c.Request.Context(), c.Param("id"))
	if err == nil && !requestIdentity(c).Owns(s) {
		err = tournament.ErrSessionNotFound
	}
	if err != nil {
		server.respondError(c, "session_lookup_failed", err)
		return nil, false
	}
	return s, true
}

// CreateSession resumes or starts a bracket for the caller.
func (server *Server) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}
	if req.Preference == "" {
		req.Preference = c.Query("preference")
	}
	pref, err := tournament.ParsePreference(req.Preference)
	if err != nil {
		server.respondError(c, "create_session_failed", err)
		return
	}

	handle, err := server.Engine.CreateOrResumeSession(c.Request.Context(), requestIdentity(c), pref)
	if err != nil {
		server.respondError(c, "create_session_failed", err)
		return
	}
	if handle == nil {
		c.Status(http.StatusNoContent)
		return
	}

	status := http.StatusCreated
	if handle.IsExisting {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"status": status, "response": handle})
}

func (server *Server) GetSession(c *gin.Context) {
	s, ok := server.ownedSession(c)
	if !ok {
		return
	}
	summary, err := server.Engine.GetSessionSummary(c.Request.Context(), s.ID)
	if err != nil {
		server.respondError(c, "session_summary_failed", err)
		return
	}
	dto := SessionSummaryDTO{
		SessionSummary: summary,
		Winner:         server.optionalSongDTO(c.Request.Context(), summary.Winner),
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "response": dto})
}

// GetCurrentMatch returns a null response once the session is over.
func (server *Server) GetCurrentMatch(c *gin.Context) {
	s, ok := server.ownedSession(c)
	if !ok {
		return
	}
	view, err := server.Engine.GetCurrentMatch(c.Request.Context(), s.ID)
	if err != nil {
		server.respondError(c, "current_match_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "response": server.matchDTO(c.Request.Context(), view)})
}

func (server *Server) CastVote(c *gin.Context) {
	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	s, ok := server.ownedSession(c)
	if !ok {
		return
	}

	outcome, err := server.Engine.CastVote(c.Request.Context(), tournament.VoteRequest{
		SessionID: s.ID,
		SongID:    req.SongID,
		Round:     req.Round,
		Match:     req.Match,
	})
	if err != nil {
		server.respondError(c, "cast_vote_failed", err)
		return
	}
	if outcome.Completed {
		invalidateCompletedTournamentsCache()
	}

	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "response": VoteResultDTO{
		SessionID: outcome.SessionID,
		Completed: outcome.Completed,
		NextMatch: server.matchDTO(ctx, outcome.NextMatch),
		Winner:    server.optionalSongDTO(ctx, outcome.Winner),
	}})
}
