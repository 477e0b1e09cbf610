package ecs

import "github.com/rotisserie/eris"

var (
	// ErrMutationFailed is matched by every error returned from a failed commit.
	ErrMutationFailed = eris.New("staged mutation failed")

	// ErrInvalidSearch is returned when search parameters are malformed.
	ErrInvalidSearch = eris.New("invalid search")
)
