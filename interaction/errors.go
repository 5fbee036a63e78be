package interaction

import "errors"

var (
	// ErrUnknownPost is returned when toggling a post that was never seeded.
	ErrUnknownPost = errors.New("post not loaded")
	// ErrUnknownKind is returned for a Kind other than Like or Dislike.
	ErrUnknownKind = errors.New("unknown reaction kind")
)
