package tournament

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"SongBracket/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSongs(n int) []models.Song {
	songs := make([]models.Song, n)
	for i := range songs {
		songs[i] = models.Song{ID: fmt.Sprintf("song-%d", i), Title: fmt.Sprintf("Song %d", i)}
	}
	return songs
}

func roundSizes(b models.Bracket) []int {
	sizes := make([]int, 0, len(b.Rounds))
	for _, r := range b.Rounds {
		sizes = append(sizes, len(r.Slots))
	}
	return sizes
}

func firstRoundIDs(b models.Bracket) []string {
	var ids []string
	for _, s := range b.Rounds[0].Slots {
		if s.Song1 != nil {
			ids = append(ids, s.Song1.ID)
		}
		if s.Song2 != nil {
			ids = append(ids, s.Song2.ID)
		}
	}
	return ids
}

func seededBuilder(target, maxRounds int) *Builder {
	return NewBuilder(target, maxRounds, rand.New(rand.NewPCG(1, 2)))
}

func TestBuildEmptyPool(t *testing.T) {
	_, err := seededBuilder(128, 10).Build(nil)
	assert.ErrorIs(t, err, ErrInsufficientItems)
}

func TestBuildSingleSongFacesItself(t *testing.T) {
	b, err := seededBuilder(128, 10).Build(makeSongs(1))
	require.NoError(t, err)

	require.Equal(t, []int{1}, roundSizes(b))
	slot := b.Slot(1, 1)
	assert.Equal(t, "song-0", slot.Song1.ID)
	assert.Equal(t, "song-0", slot.Song2.ID)
	assert.False(t, slot.Completed)
}

func TestBuildOddPoolDuplicatesFirstSong(t *testing.T) {
	b, err := seededBuilder(128, 10).Build(makeSongs(5))
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2, 1}, roundSizes(b))
	counts := map[string]int{}
	for _, id := range firstRoundIDs(b) {
		counts[id]++
	}
	assert.Len(t, counts, 5)
	assert.Equal(t, 2, counts["song-0"])
	for _, s := range b.Rounds[0].Slots {
		assert.True(t, s.Ready())
	}
}

func TestBuildSamplesDownToTarget(t *testing.T) {
	b, err := seededBuilder(128, 10).Build(makeSongs(300))
	require.NoError(t, err)

	assert.Equal(t, []int{64, 32, 16, 8, 4, 2, 1}, roundSizes(b))
	ids := firstRoundIDs(b)
	assert.Len(t, ids, 128)
	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "song %s sampled twice", id)
		seen[id] = true
	}
	assert.Equal(t, 128, b.PoolTarget)
	assert.Equal(t, "Round of 64", b.RoundName(1))
}

func TestBuildRoundSizeLaw(t *testing.T) {
	builder := seededBuilder(128, 10)
	for n := 2; n <= 64; n += 2 {
		b, err := builder.Build(makeSongs(n))
		require.NoError(t, err)

		sizes := roundSizes(b)
		require.Equal(t, n/2, sizes[0], "n=%d", n)
		for r := 1; r < len(sizes); r++ {
			assert.Equal(t, (sizes[r-1]+1)/2, sizes[r], "n=%d round=%d", n, r+1)
		}
		assert.Equal(t, 1, sizes[len(sizes)-1], "n=%d", n)
		for r := 2; r <= b.TotalRounds(); r++ {
			for _, s := range b.Rounds[r-1].Slots {
				if !s.Completed {
					assert.Nil(t, s.Song1)
					assert.Nil(t, s.Song2)
				}
			}
		}
	}
}

func TestBuildTooDeep(t *testing.T) {
	_, err := seededBuilder(2000, 10).Build(makeSongs(1500))
	assert.ErrorIs(t, err, ErrBracketTooDeep)

	b, err := seededBuilder(1024, 10).Build(makeSongs(1500))
	require.NoError(t, err)
	assert.Equal(t, 10, b.TotalRounds())
}

func TestBuildOddTargetGetsByeSlot(t *testing.T) {
	b, err := seededBuilder(3, 10).Build(makeSongs(3))
	require.NoError(t, err)

	require.Equal(t, []int{2, 1}, roundSizes(b))
	bye := b.Slot(1, 2)
	assert.True(t, bye.Completed)
	assert.Nil(t, bye.Song2)
	assert.Equal(t, bye.Song1.ID, bye.Winner.ID)
}

func TestBuildShuffles(t *testing.T) {
	builder := NewBuilder(128, 10, nil)
	songs := makeSongs(32)
	var orders []string
	for i := 0; i < 5; i++ {
		b, err := builder.Build(songs)
		require.NoError(t, err)
		orders = append(orders, fmt.Sprint(firstRoundIDs(b)))
	}
	distinct := map[string]bool{}
	for _, o := range orders {
		distinct[o] = true
	}
	assert.Greater(t, len(distinct), 1)
}

func TestNewBuilderDefaults(t *testing.T) {
	b := NewBuilder(0, 0, nil)
	assert.Equal(t, DefaultPoolSize, b.TargetSize)
	assert.Equal(t, DefaultMaxRounds, b.MaxRounds)
}
