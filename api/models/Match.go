package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Match is the append-only record of a decided slot. The unique index on
// (session_id, round_number, match_number) is what stops a slot from being
// voted twice.
type Match struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	SessionID   string `gorm:"size:36;not null;uniqueIndex:idx_matches_session_slot,priority:1" json:"session_id"`
	RoundNumber int    `gorm:"not null;uniqueIndex:idx_matches_session_slot,priority:2" json:"round_number"`
	MatchNumber int    `gorm:"not null;uniqueIndex:idx_matches_session_slot,priority:3" json:"match_number"`
	Song1ID     string `gorm:"size:36;not null" json:"song1_id"`
	Song2ID     string `gorm:"size:36;not null" json:"song2_id"`
	WinnerID    string `gorm:"size:36;not null;index" json:"winner_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Vote is the append-only record of the chooser's pick in a match.
type Vote struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	MatchID   string  `gorm:"size:36;not null;uniqueIndex" json:"match_id"`
	SessionID string  `gorm:"size:36;not null;index" json:"session_id"`
	SongID    string  `gorm:"size:36;not null;index" json:"song_id"`
	UserID    *string `gorm:"size:64" json:"user_id,omitempty"`
	AnonID    *string `gorm:"size:36" json:"anon_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// MatchExists reports whether a slot already has its match record.
func MatchExists(db *gorm.DB, sessionID string, round, match int) (bool, error) {
	var count int64
	err := db.Model(&Match{}).
		Where("session_id = ? AND round_number = ? AND match_number = ?", sessionID, round, match).
		Count(&count).Error
	return count > 0, err
}
