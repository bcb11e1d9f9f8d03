package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// SongRef is the snapshot of a song stored inside a bracket.
type SongRef struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	OriginalSong       string `json:"original_song,omitempty"`
	AudioURL           string `json:"audio_url,omitempty"`
	BackgroundImageURL string `json:"background_image_url,omitempty"`
}

// Slot is one pairwise decision inside a round. A slot with only Song1 set
// and Completed already true is a bye.
type Slot struct {
	Song1     *SongRef `json:"song1"`
	Song2     *SongRef `json:"song2"`
	Winner    *SongRef `json:"winner"`
	Completed bool     `json:"completed"`
}

// Has reports whether songID is one of the two sides.
func (s Slot) Has(songID string) bool {
	return (s.Song1 != nil && s.Song1.ID == songID) || (s.Song2 != nil && s.Song2.ID == songID)
}

// Opponent returns the side that is not songID. When both sides are the
// same song the song is its own opponent.
func (s Slot) Opponent(songID string) *SongRef {
	switch {
	case s.Song1 != nil && s.Song1.ID == songID:
		return s.Song2
	case s.Song2 != nil && s.Song2.ID == songID:
		return s.Song1
	}
	return nil
}

func (s Slot) Ready() bool {
	return s.Song1 != nil && s.Song2 != nil
}

type Round struct {
	Slots []Slot `json:"slots"`
}

// Bracket is the whole elimination tree of a session, persisted as one
// JSON document in the session row.
type Bracket struct {
	// PoolTarget is the target pool size the bracket was built for. Round
	// labels depend on it.
	PoolTarget int     `json:"pool_target"`
	Rounds     []Round `json:"rounds"`
}

func (b Bracket) TotalRounds() int {
	return len(b.Rounds)
}

// Slot returns the slot at 1-indexed (round, match), or nil.
func (b *Bracket) Slot(round, match int) *Slot {
	if round < 1 || round > len(b.Rounds) {
		return nil
	}
	slots := b.Rounds[round-1].Slots
	if match < 1 || match > len(slots) {
		return nil
	}
	return &slots[match-1]
}

// RoundSize is the number of slots in a 1-indexed round, 0 if missing.
func (b Bracket) RoundSize(round int) int {
	if round < 1 || round > len(b.Rounds) {
		return 0
	}
	return len(b.Rounds[round-1].Slots)
}

func (b Bracket) SlotCount() int {
	total := 0
	for _, r := range b.Rounds {
		total += len(r.Slots)
	}
	return total
}

func (b Bracket) CompletedCount() int {
	done := 0
	for _, r := range b.Rounds {
		for _, s := range r.Slots {
			if s.Completed {
				done++
			}
		}
	}
	return done
}

func (b Bracket) RoundComplete(round int) bool {
	if round < 1 || round > len(b.Rounds) {
		return false
	}
	for _, s := range b.Rounds[round-1].Slots {
		if !s.Completed {
			return false
		}
	}
	return true
}

// PropagateWinners copies the winners of a completed round into the next
// one: slot 2k feeds side A of slot k, slot 2k+1 feeds side B. A next-round
// slot with no side B source becomes a bye won by side A.
func (b *Bracket) PropagateWinners(round int) error {
	if !b.RoundComplete(round) {
		return fmt.Errorf("round %d is not complete", round)
	}
	if round >= len(b.Rounds) {
		return nil
	}
	prev := b.Rounds[round-1].Slots
	next := b.Rounds[round].Slots
	for k := range next {
		a, bIdx := 2*k, 2*k+1
		if a >= len(prev) {
			return fmt.Errorf("round %d slot %d has no source", round+1, k+1)
		}
		next[k].Song1 = prev[a].Winner
		if bIdx < len(prev) {
			next[k].Song2 = prev[bIdx].Winner
			continue
		}
		next[k].Song2 = nil
		next[k].Winner = next[k].Song1
		next[k].Completed = true
	}
	return nil
}

// Settle propagates every completed round forward, starting at round, so
// rounds made entirely of byes resolve on their own.
func (b *Bracket) Settle(round int) error {
	for r := round; r < len(b.Rounds) && b.RoundComplete(r); r++ {
		if err := b.PropagateWinners(r); err != nil {
			return err
		}
	}
	return nil
}

// NextOpen finds the first undecided slot after (round, match), moving into
// later rounds when the current one is exhausted.
func (b Bracket) NextOpen(round, match int) (int, int, bool) {
	for r := round; r >= 1 && r <= len(b.Rounds); r++ {
		start := 0
		if r == round {
			start = match
		}
		slots := b.Rounds[r-1].Slots
		for i := start; i < len(slots); i++ {
			if !slots[i].Completed {
				return r, i + 1, true
			}
		}
	}
	return 0, 0, false
}

// Champion is the winner of the final round's single slot.
func (b Bracket) Champion() *SongRef {
	if len(b.Rounds) == 0 {
		return nil
	}
	final := b.Rounds[len(b.Rounds)-1].Slots
	if len(final) != 1 || !final[0].Completed {
		return nil
	}
	return final[0].Winner
}

// CanonicalDepth is ceil(log2(PoolTarget)).
func (b Bracket) CanonicalDepth() int {
	if b.PoolTarget < 2 {
		return 0
	}
	return bits.Len(uint(b.PoolTarget - 1))
}

// RoundName labels a round. Only brackets with the full depth for their
// pool target get named rounds; anything else is "Round N".
func (b Bracket) RoundName(round int) string {
	total := len(b.Rounds)
	if total == 0 || total != b.CanonicalDepth() || round < 1 || round > total {
		return fmt.Sprintf("Round %d", round)
	}
	switch remaining := total - round; remaining {
	case 0:
		return "Grand Finals"
	case 1:
		return "Finals"
	case 2:
		return "Semi-Finals"
	case 3:
		return "Quarter-Finals"
	default:
		return fmt.Sprintf("Round of %d", 1<<remaining)
	}
}

func (b Bracket) Value() (driver.Value, error) {
	if b.Rounds == nil {
		b.Rounds = []Round{}
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (b *Bracket) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*b = Bracket{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("bracket: unsupported column type")
	}
	if len(raw) == 0 {
		*b = Bracket{}
		return nil
	}
	return json.Unmarshal(raw, b)
}

func (Bracket) GormDataType() string {
	return "json"
}

func (Bracket) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "TEXT"
}
