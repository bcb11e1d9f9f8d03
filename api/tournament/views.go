package tournament

import (
	"time"

	"SongBracket/api/models"
)

// MatchView is the match under a session's cursor, ready for display.
type MatchView struct {
	SessionID          string          `json:"session_id"`
	RoundNumber        int             `json:"round_number"`
	RoundName          string          `json:"round_name"`
	MatchIndex         int             `json:"match_index"`
	MatchProgressLabel string          `json:"match_progress_label"`
	Item1              models.SongRef  `json:"item1"`
	Item2              models.SongRef  `json:"item2"`
	Progress           models.Progress `json:"progress"`
}

type SessionHandle struct {
	SessionID  string `json:"session_id"`
	Status     string `json:"status"`
	IsExisting bool   `json:"is_existing"`
}

type SessionSummary struct {
	SessionID          string          `json:"session_id"`
	Status             string          `json:"status"`
	CurrentRound       int             `json:"current_round"`
	CurrentMatch       int             `json:"current_match"`
	TotalRounds        int             `json:"total_rounds"`
	RoundName          string          `json:"round_name"`
	MatchProgressLabel string          `json:"match_progress_label"`
	Progress           models.Progress `json:"progress"`
	Winner             *models.SongRef `json:"winner,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type VoteOutcome struct {
	SessionID string          `json:"session_id"`
	Completed bool            `json:"completed"`
	NextMatch *MatchView      `json:"next_match"`
	Winner    *models.SongRef `json:"winner,omitempty"`
}

// matchView is nil when there is nothing to vote on.
func matchView(s *models.VotingSession) *MatchView {
	slot := s.CurrentMatchData()
	if slot == nil || slot.Completed || !slot.Ready() {
		return nil
	}
	return &MatchView{
		SessionID:          s.ID,
		RoundNumber:        s.CurrentRound,
		RoundName:          s.CurrentRoundName(),
		MatchIndex:         s.CurrentMatch,
		MatchProgressLabel: s.MatchProgressLabel(),
		Item1:              *slot.Song1,
		Item2:              *slot.Song2,
		Progress:           s.Progress(),
	}
}

func summarize(s *models.VotingSession) SessionSummary {
	sum := SessionSummary{
		SessionID:          s.ID,
		Status:             s.Status,
		CurrentRound:       s.CurrentRound,
		CurrentMatch:       s.CurrentMatch,
		TotalRounds:        s.Bracket.TotalRounds(),
		RoundName:          s.CurrentRoundName(),
		MatchProgressLabel: s.MatchProgressLabel(),
		Progress:           s.Progress(),
		UpdatedAt:          s.UpdatedAt,
	}
	if s.Status == models.SessionCompleted {
		sum.Winner = s.Bracket.Champion()
	}
	return sum
}
