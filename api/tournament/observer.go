package tournament

import "time"

// Observer receives engine events. The metrics package implements it.
type Observer interface {
	VoteCast(result string, elapsed time.Duration)
	VoteRetried(op string)
	SessionStarted(preference Preference, existing bool)
	TournamentCompleted()
	SessionsAbandoned(reason string, count int64)
}

type nopObserver struct{}

func (nopObserver) VoteCast(string, time.Duration)  {}
func (nopObserver) VoteRetried(string)              {}
func (nopObserver) SessionStarted(Preference, bool) {}
func (nopObserver) TournamentCompleted()            {}
func (nopObserver) SessionsAbandoned(string, int64) {}
