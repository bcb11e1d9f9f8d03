package tournament

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"SongBracket/api/catalog"
	"SongBracket/api/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tournament.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AutoMigrateAll()...))
	require.NoError(t, models.EnsureSessionConstraints(db))
	return db
}

func seedSongs(t *testing.T, db *gorm.DB, titles ...string) []models.Song {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	songs := make([]models.Song, 0, len(titles))
	for i, title := range titles {
		song := models.Song{Title: title, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, db.Create(&song).Error)
		songs = append(songs, song)
	}
	return songs
}

func numberedTitles(n int) []string {
	titles := make([]string, n)
	for i := range titles {
		titles[i] = fmt.Sprintf("Song %03d", i+1)
	}
	return titles
}

func newTestEngine(t *testing.T, db *gorm.DB, obs Observer) *Engine {
	t.Helper()
	return NewEngine(db, catalog.NewStore(db), Options{
		Retry:    RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond, Timeout: 5 * time.Second},
		Observer: obs,
		Rand:     rand.New(rand.NewPCG(7, 11)),
	})
}

func loadSong(t *testing.T, db *gorm.DB, id string) models.Song {
	t.Helper()
	var song models.Song
	require.NoError(t, db.First(&song, "id = ?", id).Error)
	return song
}

func loadSession(t *testing.T, db *gorm.DB, id string) models.VotingSession {
	t.Helper()
	var s models.VotingSession
	require.NoError(t, db.First(&s, "id = ?", id).Error)
	return s
}

// forceBracket replaces a session's bracket with a fixed pairing so a test
// can script the votes.
func forceBracket(t *testing.T, db *gorm.DB, sessionID string, pairs ...[2]models.Song) {
	t.Helper()
	first := make([]models.Slot, 0, len(pairs))
	for _, p := range pairs {
		a, b := p[0].Ref(), p[1].Ref()
		first = append(first, models.Slot{Song1: &a, Song2: &b})
	}
	rounds := []models.Round{{Slots: first}}
	for size := len(first); size > 1; {
		size = (size + 1) / 2
		rounds = append(rounds, models.Round{Slots: make([]models.Slot, size)})
	}
	bracket := models.Bracket{PoolTarget: DefaultPoolSize, Rounds: rounds}
	require.NoError(t, db.Model(&models.VotingSession{}).Where("id = ?", sessionID).
		Updates(map[string]interface{}{"bracket": bracket, "current_round": 1, "current_match": 1}).Error)
}

// playOut votes for Item1 until the session completes and returns the
// number of votes cast.
func playOut(t *testing.T, e *Engine, sessionID string) int {
	t.Helper()
	ctx := context.Background()
	votes := 0
	for {
		view, err := e.GetCurrentMatch(ctx, sessionID)
		require.NoError(t, err)
		if view == nil {
			return votes
		}
		outcome, err := e.CastVote(ctx, VoteRequest{
			SessionID: sessionID,
			SongID:    view.Item1.ID,
			Round:     view.RoundNumber,
			Match:     view.MatchIndex,
		})
		require.NoError(t, err)
		votes++
		if outcome.Completed {
			return votes
		}
		require.NotNil(t, outcome.NextMatch)
	}
}

type recordingObserver struct {
	mu        sync.Mutex
	votes     map[string]int
	retries   int
	completed int
	started   int
	abandoned map[string]int64
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{votes: map[string]int{}, abandoned: map[string]int64{}}
}

func (o *recordingObserver) VoteCast(result string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.votes[result]++
}

func (o *recordingObserver) VoteRetried(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries++
}

func (o *recordingObserver) SessionStarted(Preference, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) TournamentCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
}

func (o *recordingObserver) SessionsAbandoned(reason string, count int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.abandoned[reason] += count
}
