package controllers

import (
	"context"
	"time"

	"SongBracket/api/cache"
)

const (
	completedTournamentsKey = "completed_tournaments_count"
	completedTournamentsTTL = 5 * time.Minute
)

func (server *Server) completedTournaments(ctx context.Context) (int64, error) {
	return cache.Remember(ctx, completedTournamentsKey, completedTournamentsTTL, server.Leaderboard.CompletedTournaments)
}

func invalidateCompletedTournamentsCache() {
	_ = cache.Delete(context.Background(), completedTournamentsKey)
}
