// Package token extracts identity claims from the session tokens issued by
// the recipe API. Tokens are parsed but never verified: signature checks
// belong to the server, and the client only reads what the server handed it.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a token cannot be parsed or carries no user id.
var ErrMalformed = errors.New("malformed token")

// Claims holds the identity fields carried by a session token.
type Claims struct {
	UserID string
	Name   string
	// ExpiresAt is the token's own expiry, zero if absent. It is informational
	// only; the client's local validity horizon decides liveness.
	ExpiresAt time.Time
}

// userIDKeys lists the claim names the API has used for the user id.
var userIDKeys = []string{"user_id", "userID"}

var parser = jwt.NewParser()

// Decode parses raw and returns its claims. It fails closed: any structural
// problem yields ErrMalformed and zero Claims.
func Decode(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, mc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var c Claims
	for _, k := range userIDKeys {
		if v, ok := mc[k].(string); ok && v != "" {
			c.UserID = v
			break
		}
	}
	if c.UserID == "" {
		return Claims{}, fmt.Errorf("%w: missing user id", ErrMalformed)
	}
	if name, ok := mc["name"].(string); ok {
		c.Name = name
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}
