package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SessionActive    = "ACTIVE"
	SessionCompleted = "COMPLETED"
	SessionAbandoned = "ABANDONED"
)

// VotingSession is one chooser's run through a bracket. The whole bracket
// lives in the row, so a single read restores the full state.
type VotingSession struct {
	ID     string  `gorm:"primaryKey;size:36" json:"id"`
	UserID *string `gorm:"size:64;index:idx_voting_sessions_user_status,priority:1" json:"user_id,omitempty"`
	AnonID *string `gorm:"size:36;index:idx_voting_sessions_anon_status,priority:1" json:"anon_id,omitempty"`

	Bracket      Bracket `gorm:"not null" json:"bracket"`
	CurrentRound int     `gorm:"not null;default:1" json:"current_round"`
	CurrentMatch int     `gorm:"not null;default:1" json:"current_match"`
	Status       string  `gorm:"size:20;not null;default:'ACTIVE';index:idx_voting_sessions_user_status,priority:2;index:idx_voting_sessions_anon_status,priority:2" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	progress *Progress
}

// Progress counts decided slots across every round.
type Progress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

func (s *VotingSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = SessionActive
	}
	return nil
}

func (s *VotingSession) AfterFind(tx *gorm.DB) error {
	s.Invalidate()
	return nil
}

func (s *VotingSession) IsActive() bool {
	return s.Status == SessionActive
}

// CurrentMatchData returns the slot under the cursor. It is nil once the
// session has left ACTIVE or when the bracket has no such slot.
func (s *VotingSession) CurrentMatchData() *Slot {
	if s.Status != SessionActive {
		return nil
	}
	return s.Bracket.Slot(s.CurrentRound, s.CurrentMatch)
}

func (s *VotingSession) RoundName(round int) string {
	return s.Bracket.RoundName(round)
}

func (s *VotingSession) CurrentRoundName() string {
	return s.Bracket.RoundName(s.CurrentRound)
}

// MatchProgressLabel renders the cursor as "match/total" within its round.
func (s *VotingSession) MatchProgressLabel() string {
	total := s.Bracket.RoundSize(s.CurrentRound)
	if total == 0 {
		return fmt.Sprintf("%d/?", s.CurrentMatch)
	}
	return fmt.Sprintf("%d/%d", s.CurrentMatch, total)
}

// Progress is memoized until the next mutation.
func (s *VotingSession) Progress() Progress {
	if s.progress != nil {
		return *s.progress
	}
	p := Progress{
		Completed: s.Bracket.CompletedCount(),
		Total:     s.Bracket.SlotCount(),
	}
	if p.Total > 0 {
		p.Percentage = math.Round(float64(p.Completed)/float64(p.Total)*1000) / 10
	}
	s.progress = &p
	return p
}

func (s *VotingSession) Invalidate() {
	s.progress = nil
}

// DecideCurrent records winner on the slot under the cursor and settles the
// bracket. It does not move the cursor.
func (s *VotingSession) DecideCurrent(winner SongRef) error {
	defer s.Invalidate()
	slot := s.Bracket.Slot(s.CurrentRound, s.CurrentMatch)
	if slot == nil {
		return fmt.Errorf("no slot at round %d match %d", s.CurrentRound, s.CurrentMatch)
	}
	if slot.Completed {
		return fmt.Errorf("slot at round %d match %d already decided", s.CurrentRound, s.CurrentMatch)
	}
	w := winner
	slot.Winner = &w
	slot.Completed = true
	return s.Bracket.Settle(s.CurrentRound)
}

// Advance moves the cursor to the next undecided slot. It reports false
// when none remains; the cursor then stays where it was.
func (s *VotingSession) Advance() bool {
	defer s.Invalidate()
	round, match, ok := s.Bracket.NextOpen(s.CurrentRound, s.CurrentMatch)
	if !ok {
		return false
	}
	s.CurrentRound, s.CurrentMatch = round, match
	return true
}

// Rewind points the cursor at the first undecided slot of the bracket.
func (s *VotingSession) Rewind() bool {
	defer s.Invalidate()
	round, match, ok := s.Bracket.NextOpen(1, 0)
	if !ok {
		return false
	}
	s.CurrentRound, s.CurrentMatch = round, match
	return true
}

func (s *VotingSession) MarkCompleted() {
	s.Status = SessionCompleted
	s.Invalidate()
}

func (s *VotingSession) MarkAbandoned() {
	s.Status = SessionAbandoned
	s.Invalidate()
}
