package tournament

import "errors"

var (
	ErrInvalidChoice     = errors.New("chosen song is not part of the current match")
	ErrIdentityConflict  = errors.New("exactly one of user or anonymous identity is required")
	ErrInvalidPreference = errors.New("unknown session preference")
	ErrSessionNotFound   = errors.New("voting session not found")
	ErrSessionNotActive  = errors.New("voting session is not active")
	ErrNoCurrentMatch    = errors.New("no open match at the session cursor")
	ErrDuplicateVote     = errors.New("match already has a vote")
	ErrInsufficientItems = errors.New("song pool is empty")
	ErrBracketTooDeep    = errors.New("bracket exceeds the maximum round count")
	ErrTransientStorage  = errors.New("transient storage error")
	ErrItemNotFound      = errors.New("song not found")
)

// ErrorKind groups errors by who has to act on them.
type ErrorKind string

const (
	KindInput     ErrorKind = "input"
	KindState     ErrorKind = "state"
	KindResource  ErrorKind = "resource"
	KindTransient ErrorKind = "transient"
	KindInternal  ErrorKind = "internal"
)

// Kind classifies err. Anything unrecognised is internal.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidChoice),
		errors.Is(err, ErrIdentityConflict),
		errors.Is(err, ErrInvalidPreference):
		return KindInput
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrSessionNotActive),
		errors.Is(err, ErrNoCurrentMatch),
		errors.Is(err, ErrDuplicateVote):
		return KindState
	case errors.Is(err, ErrInsufficientItems),
		errors.Is(err, ErrBracketTooDeep),
		errors.Is(err, ErrItemNotFound):
		return KindResource
	case errors.Is(err, ErrTransientStorage):
		return KindTransient
	}
	return KindInternal
}
