package controllers

import (
	"context"

	"SongBracket/api/models"
	"SongBracket/api/tournament"
)

type SongDTO struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	OriginalSong       string `json:"original_song"`
	AudioURL           string `json:"audio_url"`
	BackgroundImageURL string `json:"background_image_url"`
}

type MatchDTO struct {
	SessionID          string          `json:"session_id"`
	RoundNumber        int             `json:"round_number"`
	RoundName          string          `json:"round_name"`
	MatchIndex         int             `json:"match_index"`
	MatchProgressLabel string          `json:"match_progress_label"`
	Item1              SongDTO         `json:"item1"`
	Item2              SongDTO         `json:"item2"`
	Progress           models.Progress `json:"progress"`
}

type VoteResultDTO struct {
	SessionID string    `json:"session_id"`
	Completed bool      `json:"completed"`
	NextMatch *MatchDTO `json:"next_match"`
	Winner    *SongDTO  `json:"winner,omitempty"`
}

type SessionSummaryDTO struct {
	tournament.SessionSummary
	Winner *SongDTO `json:"winner,omitempty"`
}

func (server *Server) songDTO(ctx context.Context, ref models.SongRef) SongDTO {
	ref = server.Media.ResolveRef(ctx, ref)
	return SongDTO{
		ID:                 ref.ID,
		Title:              ref.Title,
		OriginalSong:       ref.OriginalSong,
		AudioURL:           ref.AudioURL,
		BackgroundImageURL: ref.BackgroundImageURL,
	}
}

func (server *Server) optionalSongDTO(ctx context.Context, ref *models.SongRef) *SongDTO {
	if ref == nil {
		return nil
	}
	dto := server.songDTO(ctx, *ref)
	return &dto
}

func (server *Server) matchDTO(ctx context.Context, view *tournament.MatchView) *MatchDTO {
	if view == nil {
		return nil
	}
	return &MatchDTO{
		SessionID:          view.SessionID,
		RoundNumber:        view.RoundNumber,
		RoundName:          view.RoundName,
		MatchIndex:         view.MatchIndex,
		MatchProgressLabel: view.MatchProgressLabel,
		Item1:              server.songDTO(ctx, view.Item1),
		Item2:              server.songDTO(ctx, view.Item2),
		Progress:           view.Progress,
	}
}
