package models

import (
	"errors"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Song is a votable catalog entry. Display fields are written by the seeder
// or admin tooling; the engine only touches the counters.
type Song struct {
	ID                 string `gorm:"primaryKey;size:36" json:"id"`
	Title              string `gorm:"size:255;not null" json:"title"`
	OriginalSong       string `gorm:"size:255" json:"original_song"`
	AudioURL           string `gorm:"size:1024" json:"audio_url"`
	BackgroundImageURL string `gorm:"size:1024" json:"background_image_url"`

	Picks          int64 `gorm:"not null;default:0" json:"picks"`
	Wins           int64 `gorm:"not null;default:0" json:"wins"`
	Losses         int64 `gorm:"not null;default:0" json:"losses"`
	TournamentWins int64 `gorm:"not null;default:0;index" json:"tournament_wins"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Song) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s *Song) Prepare() {
	s.Title = html.EscapeString(strings.TrimSpace(s.Title))
	s.OriginalSong = html.EscapeString(strings.TrimSpace(s.OriginalSong))
	s.AudioURL = strings.TrimSpace(s.AudioURL)
	s.BackgroundImageURL = strings.TrimSpace(s.BackgroundImageURL)
}

func (s *Song) Validate() error {
	if s.Title == "" {
		return errors.New("required title")
	}
	return nil
}

// Ref snapshots the display fields into a bracket reference.
func (s Song) Ref() SongRef {
	return SongRef{
		ID:                 s.ID,
		Title:              s.Title,
		OriginalSong:       s.OriginalSong,
		AudioURL:           s.AudioURL,
		BackgroundImageURL: s.BackgroundImageURL,
	}
}

// PickRate is the share of appearances the song won, in percent.
func (s Song) PickRate() float64 {
	if s.Picks == 0 {
		return 0
	}
	return float64(s.Wins) * 100 / float64(s.Picks)
}

// RecordWin and RecordLoss bump counters atomically in the database, so two
// sessions voting on the same song never lose an update.
func RecordWin(db *gorm.DB, songID string) error {
	return bumpCounters(db, songID, "wins")
}

func RecordLoss(db *gorm.DB, songID string) error {
	return bumpCounters(db, songID, "losses")
}

func RecordTournamentWin(db *gorm.DB, songID string) error {
	res := db.Model(&Song{}).Where("id = ?", songID).
		UpdateColumn("tournament_wins", gorm.Expr("tournament_wins + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func bumpCounters(db *gorm.DB, songID, column string) error {
	res := db.Model(&Song{}).Where("id = ?", songID).UpdateColumns(map[string]interface{}{
		"picks": gorm.Expr("picks + ?", 1),
		column:  gorm.Expr(column+" + ?", 1),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
