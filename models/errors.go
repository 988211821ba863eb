package models

import "errors"

// Domain errors surfaced by the services layer
var (
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrNotOnLeaderboard    = errors.New("user not on leaderboard yet")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
)
