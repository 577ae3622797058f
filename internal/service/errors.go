package service

import "errors"

var (
	// ErrCredentialInvalid rejects a login whose id/secret pair failed verification.
	ErrCredentialInvalid = errors.New("credential invalid")
	// ErrTokenMissing marks a request that carried no bearer credential at all.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenMalformed marks an access token that could not even be decoded.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrBothTokensRequired rejects a refresh attempt missing either token.
	ErrBothTokensRequired = errors.New("both tokens required")
	// ErrNotYetExpirable rejects a refresh while the access token is still valid.
	ErrNotYetExpirable = errors.New("access token is not expired")
	// ErrRefreshMismatch rejects a refresh token that is not the one on record.
	ErrRefreshMismatch = errors.New("refresh token mismatch")
)

// VerificationError carries the externally visible reason for a rejected
// access token; adapters relay Reason verbatim. Expired distinguishes the
// refresh-eligible case from a malformed or badly signed token.
type VerificationError struct {
	Reason  string
	Expired bool
}

func (e *VerificationError) Error() string { return e.Reason }
