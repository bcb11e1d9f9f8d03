package tournament

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"SongBracket/api/models"

	"gorm.io/gorm"
)

// Identity is the owner of a session: an account key or an anonymous
// correlation token, never both.
type Identity struct {
	UserID string
	AnonID string
}

func UserIdentity(userID string) Identity { return Identity{UserID: userID} }
func AnonIdentity(anonID string) Identity { return Identity{AnonID: anonID} }

func (id Identity) Validate() error {
	hasUser := strings.TrimSpace(id.UserID) != ""
	hasAnon := strings.TrimSpace(id.AnonID) != ""
	if hasUser == hasAnon {
		return ErrIdentityConflict
	}
	return nil
}

// Owns reports whether s belongs to id.
func (id Identity) Owns(s *models.VotingSession) bool {
	if s == nil || id.Validate() != nil {
		return false
	}
	if id.UserID != "" {
		return s.UserID != nil && *s.UserID == id.UserID
	}
	return s.AnonID != nil && *s.AnonID == id.AnonID
}

func (id Identity) scope(db *gorm.DB) *gorm.DB {
	if id.UserID != "" {
		return db.Where("user_id = ?", id.UserID)
	}
	return db.Where("anon_id = ?", id.AnonID)
}

func (id Identity) apply(s *models.VotingSession) {
	if id.UserID != "" {
		user := id.UserID
		s.UserID = &user
		return
	}
	anon := id.AnonID
	s.AnonID = &anon
}

// Preference decides whether GetOrCreate resumes, creates, or shows a
// finished session.
type Preference string

const (
	PreferActiveOnly Preference = "active_only"
	PreferCreateNew  Preference = "create_new"
	PreferDefault    Preference = "default"
)

func ParsePreference(raw string) (Preference, error) {
	switch p := Preference(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PreferDefault, nil
	case PreferActiveOnly, PreferCreateNew, PreferDefault:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPreference, raw)
}

// GetOrCreate finds or starts the caller's session. With active_only and no
// active session it returns (nil, false, nil).
func (e *Engine) GetOrCreate(ctx context.Context, id Identity, pref Preference) (*models.VotingSession, bool, error) {
	if err := id.Validate(); err != nil {
		return nil, false, err
	}
	if pref == "" {
		pref = PreferDefault
	}

	switch pref {
	case PreferActiveOnly:
		s, err := e.findActive(ctx, id)
		if err != nil || s == nil {
			return nil, false, err
		}
		e.observer.SessionStarted(pref, true)
		return s, true, nil

	case PreferCreateNew:
		s, _, err := e.createSession(ctx, id, true)
		if err != nil {
			return nil, false, err
		}
		e.observer.SessionStarted(pref, false)
		return s, false, nil

	case PreferDefault:
		s, err := e.findLatest(ctx, id, models.SessionCompleted)
		if err != nil {
			return nil, false, err
		}
		if s == nil {
			if s, err = e.findActive(ctx, id); err != nil {
				return nil, false, err
			}
		}
		if s != nil {
			e.observer.SessionStarted(pref, true)
			return s, true, nil
		}
		s, existing, err := e.createSession(ctx, id, false)
		if err != nil {
			return nil, false, err
		}
		e.observer.SessionStarted(pref, existing)
		return s, existing, nil
	}
	return nil, false, fmt.Errorf("%w: %q", ErrInvalidPreference, string(pref))
}

func (e *Engine) findLatest(ctx context.Context, id Identity, status string) (*models.VotingSession, error) {
	ctx, cancel := context.WithTimeout(ctx, e.retry.Timeout)
	defer cancel()

	var s models.VotingSession
	err := id.scope(e.db.WithContext(ctx)).
		Where("status = ?", status).
		Order("updated_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		if isTransient(err) {
			return nil, asTransient(err)
		}
		return nil, e.logError("tournament_find_session_failed", err, "status", status)
	}
	return &s, nil
}

// findActive returns the caller's ACTIVE session. A session whose cursor no
// longer points at an open slot cannot be voted on; it is abandoned and
// treated as absent.
func (e *Engine) findActive(ctx context.Context, id Identity) (*models.VotingSession, error) {
	s, err := e.findLatest(ctx, id, models.SessionActive)
	if err != nil || s == nil {
		return s, err
	}
	if slot := s.CurrentMatchData(); slot == nil || slot.Completed {
		if err := e.AbandonCorrupted(ctx, s.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return s, nil
}

// createSession builds a bracket and stores a new ACTIVE session. With
// replace set, the caller's ACTIVE sessions are abandoned in the same
// transaction. The bracket is built first so an empty pool leaves existing
// sessions untouched. Without replace, losing the race to a concurrent
// create returns that session with existing set.
func (e *Engine) createSession(ctx context.Context, id Identity, replace bool) (session *models.VotingSession, existing bool, err error) {
	items, err := e.catalog.ListAllItems(ctx)
	if err != nil {
		if isTransient(err) {
			return nil, false, asTransient(err)
		}
		return nil, false, e.logError("tournament_list_items_failed", err)
	}
	bracket, err := e.builder.Build(items)
	if err != nil {
		return nil, false, err
	}

	session = &models.VotingSession{
		Bracket: bracket,
		Status:  models.SessionActive,
	}
	id.apply(session)
	if !session.Rewind() {
		return nil, false, errors.New("new bracket has no open slot")
	}

	var abandoned int64
	err = e.withRetry(ctx, "create_session", func(ctx context.Context) error {
		abandoned = 0
		session.ID = ""
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if replace {
				res := id.scope(tx.Model(&models.VotingSession{})).
					Where("status = ?", models.SessionActive).
					Updates(map[string]interface{}{
						"status":     models.SessionAbandoned,
						"updated_at": e.now(),
					})
				if res.Error != nil {
					return res.Error
				}
				abandoned = res.RowsAffected
			}
			return tx.Create(session).Error
		})
	})
	if err != nil {
		if isUniqueViolation(err) && !replace {
			// Another request created the caller's session first.
			if winner, findErr := e.findActive(ctx, id); findErr == nil && winner != nil {
				return winner, true, nil
			}
		}
		if errors.Is(err, ErrTransientStorage) {
			return nil, false, err
		}
		return nil, false, e.logError("tournament_create_session_failed", err)
	}
	if abandoned > 0 {
		e.observer.SessionsAbandoned("replaced", abandoned)
	}
	e.logger.Info("voting session created",
		"event", "tournament_session_created",
		"session_id", session.ID,
		"rounds", session.Bracket.TotalRounds(),
		"slots", session.Bracket.SlotCount(),
		"replaced", abandoned,
	)
	return session, false, nil
}

// AbandonStale marks ACTIVE sessions untouched since cutoff as ABANDONED.
func (e *Engine) AbandonStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := e.withRetry(ctx, "abandon_stale", func(ctx context.Context) error {
		res := e.db.WithContext(ctx).Model(&models.VotingSession{}).
			Where("status = ? AND updated_at < ?", models.SessionActive, cutoff).
			Updates(map[string]interface{}{
				"status":     models.SessionAbandoned,
				"updated_at": e.now(),
			})
		count = res.RowsAffected
		return res.Error
	})
	if err != nil {
		if errors.Is(err, ErrTransientStorage) {
			return 0, err
		}
		return 0, e.logError("tournament_abandon_stale_failed", err)
	}
	if count > 0 {
		e.observer.SessionsAbandoned("stale", count)
	}
	return count, nil
}

// AbandonCorrupted abandons an ACTIVE session with no open slot at its
// cursor. Healthy or inactive sessions are left alone.
func (e *Engine) AbandonCorrupted(ctx context.Context, sessionID string) error {
	var abandoned bool
	err := e.withRetry(ctx, "abandon_corrupted", func(ctx context.Context) error {
		abandoned = false
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			s, err := lockSession(tx, sessionID)
			if err != nil {
				return err
			}
			if !s.IsActive() {
				return nil
			}
			if slot := s.CurrentMatchData(); slot != nil && !slot.Completed {
				return nil
			}
			abandoned = true
			return tx.Model(&models.VotingSession{}).Where("id = ?", s.ID).
				Updates(map[string]interface{}{
					"status":     models.SessionAbandoned,
					"updated_at": e.now(),
				}).Error
		})
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrTransientStorage) {
			return err
		}
		return e.logError("tournament_abandon_corrupted_failed", err, "session_id", sessionID)
	}
	if abandoned {
		e.observer.SessionsAbandoned("corrupted", 1)
		e.logger.Warn("abandoned session with no open match",
			"event", "tournament_session_corrupted",
			"session_id", sessionID,
		)
	}
	return nil
}
