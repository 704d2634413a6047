package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrDuplicateEmail     = errors.New("auth: email already in use")
	ErrDuplicateSlug      = errors.New("auth: tenant slug already in use")
	ErrExpired            = errors.New("auth: token expired")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrWrongTokenType     = errors.New("auth: wrong token type")
	ErrInactiveOrMissing  = errors.New("auth: user inactive or missing")
	ErrMalformedHeader    = errors.New("auth: malformed authorization header")
	ErrMissingToken       = errors.New("auth: missing bearer token")
	ErrUnauthenticated    = errors.New("auth: not authenticated")
	ErrForbidden          = errors.New("auth: admin role required")
)
