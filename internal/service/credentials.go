package service

import (
	"crypto/subtle"

	"github.com/tokengate/tokengate/internal/models"
)

// CredentialVerifier decides whether a login attempt maps to an identity.
type CredentialVerifier interface {
	Verify(id, secret string) (*models.Identity, bool)
}

// StaticCredentialVerifier accepts a single configured id/secret pair and
// mints the identity for it. It is the trivial CredentialVerifier; a
// store-backed implementation can replace it without touching AuthService.
type StaticCredentialVerifier struct {
	loginID     string
	loginSecret string
	role        string
}

func NewStaticCredentialVerifier(id, secret string) *StaticCredentialVerifier {
	return &StaticCredentialVerifier{
		loginID:     id,
		loginSecret: secret,
		role:        "user",
	}
}

func (v *StaticCredentialVerifier) Verify(id, secret string) (*models.Identity, bool) {
	idOK := subtle.ConstantTimeCompare([]byte(id), []byte(v.loginID)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(secret), []byte(v.loginSecret)) == 1
	if !idOK || !secretOK {
		return nil, false
	}

	return &models.Identity{ID: v.loginID, Role: v.role}, true
}
