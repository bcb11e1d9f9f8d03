package tournament

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"SongBracket/api/models"

	"gorm.io/gorm"
)

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	PoolSize  int
	MaxRounds int
	Retry     RetryPolicy
	Logger    *slog.Logger
	Observer  Observer
	Rand      *rand.Rand
	Now       func() time.Time
}

// Engine owns the session lifecycle and the voting state machine. All state
// lives in the database; an Engine can be shared by any number of callers.
type Engine struct {
	db       *gorm.DB
	catalog  Catalog
	builder  *Builder
	retry    RetryPolicy
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

func NewEngine(db *gorm.DB, catalog Catalog, opts Options) *Engine {
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		db:       db,
		catalog:  catalog,
		builder:  NewBuilder(opts.PoolSize, opts.MaxRounds, opts.Rand),
		retry:    opts.Retry.normalized(),
		logger:   resolveLogger(opts.Logger),
		observer: observer,
		now:      now,
	}
}

func (e *Engine) Builder() *Builder {
	return e.builder
}

// Session loads a session without locking it.
func (e *Engine) Session(ctx context.Context, sessionID string) (*models.VotingSession, error) {
	ctx, cancel := context.WithTimeout(ctx, e.retry.Timeout)
	defer cancel()

	var s models.VotingSession
	err := e.db.WithContext(ctx).First(&s, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		if isTransient(err) {
			return nil, asTransient(err)
		}
		return nil, e.logError("tournament_load_session_failed", err, "session_id", sessionID)
	}
	return &s, nil
}
