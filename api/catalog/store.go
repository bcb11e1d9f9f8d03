package catalog

import (
	"context"
	"errors"

	"SongBracket/api/models"

	"gorm.io/gorm"
)

var ErrSongNotFound = errors.New("song not found")

// Store is the song catalog. The engine only reads it; writes come from
// seeding and admin tooling.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// ListAllItems returns the whole pool in insertion order.
func (s *Store) ListAllItems(ctx context.Context) ([]models.Song, error) {
	var songs []models.Song
	err := s.DB.WithContext(ctx).Order("created_at ASC, id ASC").Find(&songs).Error
	return songs, err
}

func (s *Store) FindByID(ctx context.Context, id string) (*models.Song, error) {
	var song models.Song
	err := s.DB.WithContext(ctx).First(&song, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSongNotFound
	}
	if err != nil {
		return nil, err
	}
	return &song, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Song{}).Count(&count).Error
	return count, err
}

func (s *Store) Create(ctx context.Context, song *models.Song) error {
	song.Prepare()
	if err := song.Validate(); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Create(song).Error
}
