package tournament

import (
	"context"
	"sync"
	"testing"
	"time"

	"SongBracket/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func startSession(t *testing.T, e *Engine, anon string) *models.VotingSession {
	t.Helper()
	s, existing, err := e.GetOrCreate(context.Background(), AnonIdentity(anon), PreferCreateNew)
	require.NoError(t, err)
	require.False(t, existing)
	require.NotNil(t, s)
	return s
}

func TestScenarioFourSongs(t *testing.T) {
	db := newTestDB(t)
	obs := newRecordingObserver()
	e := newTestEngine(t, db, obs)
	songs := seedSongs(t, db, "A", "B", "C", "D")
	a, b, c, d := songs[0], songs[1], songs[2], songs[3]
	ctx := context.Background()

	s := startSession(t, e, "anon-a")
	forceBracket(t, db, s.ID, [2]models.Song{a, b}, [2]models.Song{c, d})

	out, err := e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: a.ID, Round: 1, Match: 1})
	require.NoError(t, err)
	assert.False(t, out.Completed)
	require.NotNil(t, out.NextMatch)
	assert.Equal(t, "2/2", out.NextMatch.MatchProgressLabel)

	out, err = e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: c.ID, Round: 1, Match: 2})
	require.NoError(t, err)
	require.NotNil(t, out.NextMatch)
	assert.Equal(t, 2, out.NextMatch.RoundNumber)
	assert.Equal(t, a.ID, out.NextMatch.Item1.ID)
	assert.Equal(t, c.ID, out.NextMatch.Item2.ID)
	assert.Equal(t, models.Progress{Completed: 2, Total: 3, Percentage: 66.7}, out.NextMatch.Progress)

	out, err = e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: a.ID, Round: 2, Match: 1})
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Nil(t, out.NextMatch)
	require.NotNil(t, out.Winner)
	assert.Equal(t, a.ID, out.Winner.ID)

	gotA := loadSong(t, db, a.ID)
	assert.Equal(t, int64(2), gotA.Picks)
	assert.Equal(t, int64(2), gotA.Wins)
	assert.Equal(t, int64(1), gotA.TournamentWins)
	gotC := loadSong(t, db, c.ID)
	assert.Equal(t, int64(2), gotC.Picks)
	assert.Equal(t, int64(1), gotC.Losses)
	assert.Equal(t, int64(0), gotC.TournamentWins)

	stored := loadSession(t, db, s.ID)
	assert.Equal(t, models.SessionCompleted, stored.Status)
	assert.Equal(t, 2, stored.CurrentRound)
	assert.Equal(t, 1, stored.CurrentMatch)

	var matches, votes int64
	require.NoError(t, db.Model(&models.Match{}).Where("session_id = ?", s.ID).Count(&matches).Error)
	require.NoError(t, db.Model(&models.Vote{}).Where("session_id = ?", s.ID).Count(&votes).Error)
	assert.Equal(t, int64(3), matches)
	assert.Equal(t, int64(3), votes)

	assert.Equal(t, 1, obs.completed)
	assert.Equal(t, 2, obs.votes["ok"])
	assert.Equal(t, 1, obs.votes["completed"])

	_, err = e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: a.ID, Round: 2, Match: 1})
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestScenarioSingleSong(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db, nil)
	only := seedSongs(t, db, "Solo")[0]

	s := startSession(t, e, "anon-solo")
	view, err := e.GetCurrentMatch(context.Background(), s.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, only.ID, view.Item1.ID)
	assert.Equal(t, only.ID, view.Item2.ID)

	out, err := e.CastVote(context.Background(), VoteRequest{SessionID: s.ID, SongID: only.ID, Round: 1, Match: 1})
	require.NoError(t, err)
	assert.True(t, out.Completed)

	got := loadSong(t, db, only.ID)
	assert.Equal(t, int64(2), got.Picks)
	assert.Equal(t, int64(1), got.Wins)
	assert.Equal(t, int64(1), got.Losses)
	assert.Equal(t, int64(1), got.TournamentWins)
}

func TestScenarioFiveSongs(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db, nil)
	songs := seedSongs(t, db, "A", "B", "C", "D", "E")

	s := startSession(t, e, "anon-five")
	assert.Equal(t, []int{3, 2, 1}, roundSizes(s.Bracket))

	// Three first-round votes, then one real second-round match (the other
	// is a bye), then the final.
	assert.Equal(t, 5, playOut(t, e, s.ID))

	stored := loadSession(t, db, s.ID)
	assert.Equal(t, models.SessionCompleted, stored.Status)
	bye := stored.Bracket.Slot(2, 2)
	require.NotNil(t, bye)
	assert.True(t, bye.Completed)
	assert.Nil(t, bye.Song2)

	var picks, wins, titles int64
	for _, song := range songs {
		got := loadSong(t, db, song.ID)
		picks += got.Picks
		wins += got.Wins
		titles += got.TournamentWins
		assert.Equal(t, got.Picks, got.Wins+got.Losses)
	}
	assert.Equal(t, int64(10), picks)
	assert.Equal(t, int64(5), wins)
	assert.Equal(t, int64(1), titles)
}

func TestConcurrentVotesOnSameSlot(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db, nil)
	seedSongs(t, db, "A", "B", "C", "D")
	ctx := context.Background()

	s := startSession(t, e, "anon-race")
	view, err := e.GetCurrentMatch(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, view)

	req := VoteRequest{SessionID: s.ID, SongID: view.Item1.ID, Round: view.RoundNumber, Match: view.MatchIndex}
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.CastVote(ctx, req)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateVote)
	}
	assert.Equal(t, 1, succeeded)

	winner := loadSong(t, db, view.Item1.ID)
	loser := loadSong(t, db, view.Item2.ID)
	assert.Equal(t, int64(1), winner.Picks)
	assert.Equal(t, int64(1), winner.Wins)
	assert.Equal(t, int64(1), loser.Picks)
	assert.Equal(t, int64(1), loser.Losses)
}

func TestConcurrentFinalVotes(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db, nil)
	seedSongs(t, db, "A", "B")
	ctx := context.Background()

	s := startSession(t, e, "anon-final")
	view, err := e.GetCurrentMatch(ctx, s.ID)
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.CastVote(ctx, VoteRequest{
				SessionID: s.ID, SongID: view.Item2.ID, Round: view.RoundNumber, Match: view.MatchIndex,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, notActive int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		if assert.ErrorIs(t, err, ErrSessionNotActive) {
			notActive++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, notActive)
	assert.Equal(t, int64(1), loadSong(t, db, view.Item2.ID).TournamentWins)
}

func TestReplayIsRejectedWithoutSideEffects(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db, nil)
	seedSongs(t, db, numberedTitles(8)...)
	ctx := context.Background()

	s := startSession(t, e, "anon-replay")
	view, err := e.GetCurrentMatch(ctx, s.ID)
	require.NoError(t, err)
	req := VoteRequest{SessionID: s.ID, SongID: view.Item1.ID, Round: view.RoundNumber, Match: view.MatchIndex}

	_, err = e.CastVote(ctx, req)
	require.NoError(t, err)
	before := loadSong(t, db, view.Item1.ID)

	_, err = e.CastVote(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateVote)
	assert.Equal(t, before, loadSong(t, db, view.Item1.ID))
	assert.Equal(t, KindState, Kind(err))
}

func TestReplayWithoutCursorIsNotCountedTwice(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db, nil)
	songs := seedSongs(t, db, "A", "B", "C", "D")
	a, b, c, d := songs[0], songs[1], songs[2], songs[3]
	ctx := context.Background()

	s := startSession(t, e, "anon-retry")
	forceBracket(t, db, s.ID, [2]models.Song{a, b}, [2]models.Song{c, d})

	_, err := e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: a.ID, Round: 1, Match: 1})
	require.NoError(t, err)
	_, err = e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: c.ID, Round: 1, Match: 2})
	require.NoError(t, err)
	before := loadSong(t, db, c.ID)

	// C is also in the open final, so a cursor-less retry must not land there.
	_, err = e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: c.ID})
	assert.ErrorIs(t, err, ErrInvalidChoice)

	_, err = e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: c.ID, Round: 1, Match: 2})
	assert.ErrorIs(t, err, ErrDuplicateVote)

	assert.Equal(t, before, loadSong(t, db, c.ID))
	stored := loadSession(t, db, s.ID)
	assert.Equal(t, models.SessionActive, stored.Status)
	assert.Equal(t, 2, stored.CurrentRound)
	assert.Equal(t, 1, stored.CurrentMatch)
	assert.Zero(t, loadSong(t, db, c.ID).TournamentWins)
}

func TestMatchInsertConflictIsDuplicateVote(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db, nil)
	songs := seedSongs(t, db, "A", "B", "C", "D")
	ctx := context.Background()

	s := startSession(t, e, "anon-conflict")
	forceBracket(t, db, s.ID, [2]models.Song{songs[0], songs[1]}, [2]models.Song{songs[2], songs[3]})

	// Another writer commits the slot's match between the existence check
	// and our insert.
	injected := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:conflicting_match", func(tx *gorm.DB) {
		if injected || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "matches" {
			return
		}
		injected = true
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO matches (id, session_id, round_number, match_number, song1_id, song2_id, winner_id, created_at) VALUES (?, ?, 1, 1, ?, ?, ?, ?)",
			"conflict", s.ID, songs[0].ID, songs[1].ID, songs[1].ID, time.Now(),
		)
	}))
	t.Cleanup(func() { _ = db.Callback().Create().Remove("test:conflicting_match") })

	_, err := e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: songs[0].ID, Round: 1, Match: 1})
	require.True(t, injected)
	assert.ErrorIs(t, err, ErrDuplicateVote)

	for _, song := range songs {
		assert.Zero(t, loadSong(t, db, song.ID).Picks, song.Title)
	}
	stored := loadSession(t, db, s.ID)
	assert.Equal(t, 1, stored.CurrentMatch)
	assert.Zero(t, stored.Bracket.CompletedCount())
}

func TestVoteValidation(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db, nil)
	songs := seedSongs(t, db, "A", "B", "C", "D")
	ctx := context.Background()

	_, err := e.CastVote(ctx, VoteRequest{SessionID: "missing", SongID: songs[0].ID, Round: 1, Match: 1})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	s := startSession(t, e, "anon-validate")
	forceBracket(t, db, s.ID, [2]models.Song{songs[0], songs[1]}, [2]models.Song{songs[2], songs[3]})

	_, err = e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: songs[2].ID, Round: 1, Match: 1})
	assert.ErrorIs(t, err, ErrInvalidChoice)

	_, err = e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: songs[0].ID})
	assert.ErrorIs(t, err, ErrInvalidChoice)

	_, err = e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: "", Round: 1, Match: 1})
	assert.ErrorIs(t, err, ErrInvalidChoice)

	_, err = e.CastVote(ctx, VoteRequest{SessionID: s.ID, SongID: songs[2].ID, Round: 1, Match: 2})
	assert.ErrorIs(t, err, ErrNoCurrentMatch)

	for _, song := range songs {
		got := loadSong(t, db, song.ID)
		assert.Zero(t, got.Picks)
	}
	stored := loadSession(t, db, s.ID)
	assert.Equal(t, 1, stored.CurrentMatch)
	assert.Zero(t, stored.Bracket.CompletedCount())
}

func TestCursorAndCounterInvariants(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db, nil)
	songs := seedSongs(t, db, numberedTitles(13)...)
	ctx := context.Background()

	for _, anon := range []string{"inv-1", "inv-2", "inv-3"} {
		s := startSession(t, e, anon)
		for {
			stored := loadSession(t, db, s.ID)
			if stored.Status != models.SessionActive {
				break
			}
			slot := stored.Bracket.Slot(stored.CurrentRound, stored.CurrentMatch)
			require.NotNil(t, slot)
			require.False(t, slot.Completed)
			require.True(t, slot.Ready())

			_, err := e.CastVote(ctx, VoteRequest{
				SessionID: s.ID,
				SongID:    slot.Song2.ID,
				Round:     stored.CurrentRound,
				Match:     stored.CurrentMatch,
			})
			require.NoError(t, err)
		}
		assert.Equal(t, models.SessionCompleted, loadSession(t, db, s.ID).Status)
	}

	var titles int64
	for _, song := range songs {
		got := loadSong(t, db, song.ID)
		assert.Equal(t, got.Picks, got.Wins+got.Losses, song.Title)
		titles += got.TournamentWins
	}
	assert.Equal(t, int64(3), titles)
}
