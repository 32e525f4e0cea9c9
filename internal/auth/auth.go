package auth

import (
	"errors"
	"net/http"
)

var ErrUnauthorized = errors.New("unauthorized")

// Resolver extracts the authenticated user id from a request. How the
// credential is issued and verified is the resolver's concern; callers only
// see a user id or ErrUnauthorized.
type Resolver interface {
	Resolve(r *http.Request) (userID string, err error)
}
