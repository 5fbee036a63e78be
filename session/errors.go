package session

import "errors"

var (
	// ErrUnauthenticated indicates a gated mutation was attempted without a signed-in user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNoIdentity indicates the API accepted the credentials but the returned token carried no usable identity.
	ErrNoIdentity = errors.New("token carried no usable identity")
)
