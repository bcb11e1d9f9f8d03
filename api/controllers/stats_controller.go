package controllers

import (
	"net/http"
	"strconv"

	"SongBracket/api/stats"

	"github.com/gin-gonic/gin"
)

// GetSongStats is the public leaderboard.
func (server *Server) GetSongStats(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(stats.DefaultLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}
	if limit > stats.MaxLimit {
		limit = stats.MaxLimit
	}

	ctx := c.Request.Context()
	rows, total, err := server.Leaderboard.Songs(ctx, stats.Query{
		Sort:   c.Query("sort"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		server.respondError(c, "song_stats_failed", err)
		return
	}
	completed, err := server.completedTournaments(ctx)
	if err != nil {
		server.respondError(c, "song_stats_failed", err)
		return
	}
	stats.ApplyWinRates(rows, completed)
	if rows == nil {
		rows = []stats.SongStat{}
	}

	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "response": stats.Page{
		Songs:                rows,
		Total:                total,
		CompletedTournaments: completed,
	}})
}

func (server *Server) Health(c *gin.Context) {
	sqlDB, err := server.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
