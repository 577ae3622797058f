package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tokengate/tokengate/internal/models"
	"github.com/tokengate/tokengate/internal/repository"
)

// RefreshTokenStore tracks the single refresh token currently issued per user
// id. Put is an unconditional upsert; concurrent writers resolve last write
// wins. Get returns repository.ErrRefreshTokenNotFound when no entry exists.
type RefreshTokenStore interface {
	Put(ctx context.Context, userID, token string) error
	Get(ctx context.Context, userID string) (string, error)
}

// AuthService orchestrates login, access checks and the refresh exchange.
// The session has no state beyond the two tokens themselves: a refresh token
// is invalidated only by a later login for the same id or by its own expiry.
type AuthService struct {
	tokens   *TokenService
	store    RefreshTokenStore
	verifier CredentialVerifier
	logger   *logrus.Logger
}

func NewAuthService(
	tokens *TokenService,
	store RefreshTokenStore,
	verifier CredentialVerifier,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		tokens:   tokens,
		store:    store,
		verifier: verifier,
		logger:   logger,
	}
}

// Login verifies the credentials, issues both tokens and records the refresh
// token for the id, overwriting whatever a prior login stored there.
func (s *AuthService) Login(ctx context.Context, id, secret string) (*models.TokenPair, error) {
	identity, ok := s.verifier.Verify(id, secret)
	if !ok {
		return nil, ErrCredentialInvalid
	}

	accessToken, err := s.tokens.SignAccess(*identity)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.SignRefresh()
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, identity.ID, refreshToken); err != nil {
		s.logger.WithError(err).Error("Failed to store refresh token")
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Authorize validates a bearer access token and returns the identity it
// asserts. A missing token is ErrTokenMissing; any verification failure is a
// *VerificationError carrying the reason verbatim.
func (s *AuthService) Authorize(accessToken string) (*models.Identity, error) {
	if accessToken == "" {
		return nil, ErrTokenMissing
	}

	result := s.tokens.VerifyAccess(accessToken)
	if !result.OK {
		return nil, &VerificationError{
			Reason:  result.Reason,
			Expired: result.Reason == ReasonExpired,
		}
	}

	return &models.Identity{ID: result.ID, Role: result.Role}, nil
}

// Refresh exchanges an expired access token plus the currently stored refresh
// token for a new access token. The refresh token is returned unchanged and
// the store entry is not rotated.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*models.TokenPair, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, ErrBothTokensRequired
	}

	claims := s.tokens.DecodeUnverified(accessToken)
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	// Reissue requires the access token to be expired. Every other
	// verification outcome, a bad signature included, lands in this branch.
	result := s.tokens.VerifyAccess(accessToken)
	if result.OK || result.Reason != ReasonExpired {
		return nil, ErrNotYetExpirable
	}

	stored, err := s.store.Get(ctx, claims.UserID)
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return nil, ErrRefreshMismatch
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to look up refresh token")
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	// Equality with the stored token, not just a valid signature, authorizes
	// the reissue: a well-signed token superseded by a later login must fail.
	if stored != refreshToken || !s.tokens.VerifyRefresh(refreshToken) {
		return nil, ErrRefreshMismatch
	}

	// The new access token is minted from the unverified claims of the
	// expired one, not from a re-fetched source of truth.
	newAccessToken, err := s.tokens.SignAccess(models.Identity{
		ID:   claims.UserID,
		Role: claims.Role,
	})
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:  newAccessToken,
		RefreshToken: refreshToken,
	}, nil
}
