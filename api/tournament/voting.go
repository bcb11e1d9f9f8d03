package tournament

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"SongBracket/api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRequest picks SongID in the session's current match. Round and Match
// are the cursor the caller saw and are required, so a replay always names
// the slot it was meant for and gets ErrDuplicateVote once that slot is
// decided.
type VoteRequest struct {
	SessionID string
	SongID    string
	Round     int
	Match     int
}

// CastVote applies one vote atomically. Transient storage failures are
// retried; the match uniqueness guard makes a retried vote safe.
func (e *Engine) CastVote(ctx context.Context, req VoteRequest) (VoteOutcome, error) {
	start := e.now()
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.SongID = strings.TrimSpace(req.SongID)
	if req.SongID == "" {
		e.observer.VoteCast(string(KindInput), e.now().Sub(start))
		return VoteOutcome{}, ErrInvalidChoice
	}

	var (
		outcome  VoteOutcome
		champion *models.SongRef
	)
	err := e.withRetry(ctx, "cast_vote", func(ctx context.Context) error {
		outcome, champion = VoteOutcome{}, nil
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			outcome, champion, err = e.applyVote(tx, req)
			return err
		})
	})
	elapsed := e.now().Sub(start)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateVote
		}
		e.observer.VoteCast(string(Kind(err)), elapsed)
		if Kind(err) == KindInternal {
			return VoteOutcome{}, e.logError("tournament_cast_vote_failed", err,
				"session_id", req.SessionID,
				"song_id", req.SongID,
			)
		}
		return VoteOutcome{}, err
	}

	if outcome.Completed {
		e.observer.VoteCast("completed", elapsed)
		e.observer.TournamentCompleted()
		e.logger.Info("tournament completed",
			"event", "tournament_completed",
			"session_id", req.SessionID,
			"winner_id", champion.ID,
		)
	} else {
		e.observer.VoteCast("ok", elapsed)
	}
	return outcome, nil
}

func (e *Engine) applyVote(tx *gorm.DB, req VoteRequest) (VoteOutcome, *models.SongRef, error) {
	s, err := lockSession(tx, req.SessionID)
	if err != nil {
		return VoteOutcome{}, nil, err
	}
	if !s.IsActive() {
		return VoteOutcome{}, nil, ErrSessionNotActive
	}

	if req.Round < 1 || req.Match < 1 {
		return VoteOutcome{}, nil, ErrInvalidChoice
	}
	if req.Round != s.CurrentRound || req.Match != s.CurrentMatch {
		decided, err := models.MatchExists(tx, s.ID, req.Round, req.Match)
		if err != nil {
			return VoteOutcome{}, nil, err
		}
		if decided {
			return VoteOutcome{}, nil, ErrDuplicateVote
		}
		return VoteOutcome{}, nil, ErrNoCurrentMatch
	}

	slot := s.CurrentMatchData()
	if slot == nil || slot.Completed || !slot.Ready() {
		return VoteOutcome{}, nil, ErrNoCurrentMatch
	}
	if !slot.Has(req.SongID) {
		return VoteOutcome{}, nil, ErrInvalidChoice
	}
	decided, err := models.MatchExists(tx, s.ID, s.CurrentRound, s.CurrentMatch)
	if err != nil {
		return VoteOutcome{}, nil, err
	}
	if decided {
		return VoteOutcome{}, nil, ErrDuplicateVote
	}

	winner := *slot.Song1
	if slot.Song1.ID != req.SongID {
		winner = *slot.Song2
	}
	loser := *slot.Opponent(winner.ID)

	match := models.Match{
		SessionID:   s.ID,
		RoundNumber: s.CurrentRound,
		MatchNumber: s.CurrentMatch,
		Song1ID:     slot.Song1.ID,
		Song2ID:     slot.Song2.ID,
		WinnerID:    winner.ID,
	}
	if err := tx.Create(&match).Error; err != nil {
		if isUniqueViolation(err) {
			return VoteOutcome{}, nil, ErrDuplicateVote
		}
		return VoteOutcome{}, nil, err
	}
	vote := models.Vote{
		MatchID:   match.ID,
		SessionID: s.ID,
		SongID:    winner.ID,
		UserID:    s.UserID,
		AnonID:    s.AnonID,
	}
	if err := tx.Create(&vote).Error; err != nil {
		return VoteOutcome{}, nil, err
	}

	if err := models.RecordWin(tx, winner.ID); err != nil {
		return VoteOutcome{}, nil, songCounterError(err, winner.ID)
	}
	if err := models.RecordLoss(tx, loser.ID); err != nil {
		return VoteOutcome{}, nil, songCounterError(err, loser.ID)
	}

	if err := s.DecideCurrent(winner); err != nil {
		return VoteOutcome{}, nil, err
	}

	var champion *models.SongRef
	if !s.Advance() {
		champion = s.Bracket.Champion()
		if champion == nil {
			return VoteOutcome{}, nil, errors.New("bracket exhausted without a champion")
		}
		s.MarkCompleted()
		if err := models.RecordTournamentWin(tx, champion.ID); err != nil {
			return VoteOutcome{}, nil, songCounterError(err, champion.ID)
		}
	}

	if err := tx.Model(&models.VotingSession{}).Where("id = ?", s.ID).
		Updates(map[string]interface{}{
			"bracket":       s.Bracket,
			"current_round": s.CurrentRound,
			"current_match": s.CurrentMatch,
			"status":        s.Status,
			"updated_at":    e.now(),
		}).Error; err != nil {
		return VoteOutcome{}, nil, err
	}

	outcome := VoteOutcome{
		SessionID: s.ID,
		Completed: s.Status == models.SessionCompleted,
		Winner:    champion,
	}
	if !outcome.Completed {
		outcome.NextMatch = matchView(s)
	}
	return outcome, champion, nil
}

// lockSession reads the session row under SELECT ... FOR UPDATE.
func lockSession(tx *gorm.DB, sessionID string) (*models.VotingSession, error) {
	var s models.VotingSession
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func songCounterError(err error, songID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrItemNotFound, songID)
	}
	return err
}
