package tournament

import (
	"context"
	"math/rand/v2"
	"sync"

	"SongBracket/api/models"
)

const (
	DefaultPoolSize  = 128
	DefaultMaxRounds = 10
)

// Catalog is the read side of the song pool.
type Catalog interface {
	ListAllItems(ctx context.Context) ([]models.Song, error)
}

// Builder turns a song pool into a bracket. It is safe for concurrent use.
type Builder struct {
	TargetSize int
	MaxRounds  int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBuilder returns a builder. A nil rng uses the global source.
func NewBuilder(targetSize, maxRounds int, rng *rand.Rand) *Builder {
	if targetSize < 2 {
		targetSize = DefaultPoolSize
	}
	if maxRounds < 1 {
		maxRounds = DefaultMaxRounds
	}
	return &Builder{TargetSize: targetSize, MaxRounds: maxRounds, rng: rng}
}

// Build selects the pool, shuffles it and lays out every round.
//
// Pools of one song face the song against itself. Odd pools below the
// target get the first song duplicated. Pools at or above the target are
// sampled down to it without replacement.
func (b *Builder) Build(items []models.Song) (models.Bracket, error) {
	n := len(items)
	if n == 0 {
		return models.Bracket{}, ErrInsufficientItems
	}

	var selected []models.SongRef
	switch {
	case n == 1:
		selected = []models.SongRef{items[0].Ref(), items[0].Ref()}
	case n < b.TargetSize:
		selected = make([]models.SongRef, 0, n+1)
		for _, it := range items {
			selected = append(selected, it.Ref())
		}
		if n%2 == 1 {
			selected = append(selected, items[0].Ref())
		}
	default:
		selected = make([]models.SongRef, 0, b.TargetSize)
		for _, idx := range b.perm(n)[:b.TargetSize] {
			selected = append(selected, items[idx].Ref())
		}
	}
	b.shuffle(selected)

	first := make([]models.Slot, 0, (len(selected)+1)/2)
	for i := 0; i+1 < len(selected); i += 2 {
		a, c := selected[i], selected[i+1]
		first = append(first, models.Slot{Song1: &a, Song2: &c})
	}
	if len(selected)%2 == 1 {
		last := selected[len(selected)-1]
		first = append(first, models.Slot{Song1: &last, Winner: &last, Completed: true})
	}

	rounds := []models.Round{{Slots: first}}
	for size := len(first); size > 1; {
		if len(rounds) >= b.MaxRounds {
			return models.Bracket{}, ErrBracketTooDeep
		}
		size = (size + 1) / 2
		rounds = append(rounds, models.Round{Slots: make([]models.Slot, size)})
	}

	bracket := models.Bracket{PoolTarget: b.TargetSize, Rounds: rounds}
	if err := bracket.Settle(1); err != nil {
		return models.Bracket{}, err
	}
	return bracket, nil
}

func (b *Builder) perm(n int) []int {
	if b.rng == nil {
		return rand.Perm(n)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Perm(n)
}

func (b *Builder) shuffle(refs []models.SongRef) {
	swap := func(i, j int) { refs[i], refs[j] = refs[j], refs[i] }
	if b.rng == nil {
		rand.Shuffle(len(refs), swap)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rng.Shuffle(len(refs), swap)
}
