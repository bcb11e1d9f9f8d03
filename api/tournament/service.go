package tournament

import (
	"context"
	"errors"
)

// CreateOrResumeSession wraps GetOrCreate for the API layer. A nil handle
// with a nil error means active_only found nothing.
func (e *Engine) CreateOrResumeSession(ctx context.Context, id Identity, pref Preference) (*SessionHandle, error) {
	s, existing, err := e.GetOrCreate(ctx, id, pref)
	if err != nil || s == nil {
		return nil, err
	}
	return &SessionHandle{SessionID: s.ID, Status: s.Status, IsExisting: existing}, nil
}

// GetCurrentMatch returns nil once the session is no longer ACTIVE. An
// ACTIVE session whose cursor has nothing to vote on is abandoned.
func (e *Engine) GetCurrentMatch(ctx context.Context, sessionID string) (*MatchView, error) {
	s, err := e.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.IsActive() {
		return nil, nil
	}
	view := matchView(s)
	if view == nil {
		if err := e.AbandonCorrupted(ctx, s.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, ErrNoCurrentMatch
	}
	return view, nil
}

func (e *Engine) GetSessionSummary(ctx context.Context, sessionID string) (SessionSummary, error) {
	s, err := e.Session(ctx, sessionID)
	if err != nil {
		return SessionSummary{}, err
	}
	return summarize(s), nil
}
