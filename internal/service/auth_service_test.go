package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/tokengate/tokengate/internal/config"
	"github.com/tokengate/tokengate/internal/models"
	"github.com/tokengate/tokengate/internal/repository"
)

type authServiceFixture struct {
	svc    *AuthService
	tokens *TokenService
	store  *repository.RefreshTokenRepository
}

func newAuthServiceFixture(t *testing.T, accessExpiry, refreshExpiry time.Duration) *authServiceFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := testLogger()

	tokens, err := NewTokenService(&config.JWTConfig{
		SecretKey:        testAccessSecret,
		RefreshSecretKey: testRefreshSecret,
		AccessExpiry:     accessExpiry,
		RefreshExpiry:    refreshExpiry,
	}, logger)
	require.NoError(t, err)

	store := repository.NewRefreshTokenRepository(client, time.Hour, logger)
	verifier := NewStaticCredentialVerifier("hello", "world")

	return &authServiceFixture{
		svc:    NewAuthService(tokens, store, verifier, logger),
		tokens: tokens,
		store:  store,
	}
}

func TestLoginAuthorizeRoundTrip(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, time.Hour, 24*time.Hour)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "hello", "world")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	identity, err := f.svc.Authorize(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "hello", identity.ID)
	require.Equal(t, "user", identity.Role)

	stored, err := f.store.Get(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, pair.RefreshToken, stored)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, time.Hour, 24*time.Hour)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "hello", "wrong")
	require.ErrorIs(t, err, ErrCredentialInvalid)

	_, err = f.svc.Login(ctx, "stranger", "world")
	require.ErrorIs(t, err, ErrCredentialInvalid)

	// A failed login leaves no trace in the store.
	_, err = f.store.Get(ctx, "hello")
	require.ErrorIs(t, err, repository.ErrRefreshTokenNotFound)
}

func TestAuthorizeMissingToken(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, time.Hour, 24*time.Hour)

	_, err := f.svc.Authorize("")
	require.ErrorIs(t, err, ErrTokenMissing)
}

func TestAuthorizeExpiredReportsSentinelReason(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, -time.Minute, 24*time.Hour)

	pair, err := f.svc.Login(context.Background(), "hello", "world")
	require.NoError(t, err)

	_, err = f.svc.Authorize(pair.AccessToken)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	require.True(t, verr.Expired)
	require.Equal(t, ReasonExpired, verr.Reason)
}

func TestRefreshRequiresBothTokens(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, time.Hour, 24*time.Hour)
	ctx := context.Background()

	_, err := f.svc.Refresh(ctx, "", "some-refresh")
	require.ErrorIs(t, err, ErrBothTokensRequired)

	_, err = f.svc.Refresh(ctx, "some-access", "")
	require.ErrorIs(t, err, ErrBothTokensRequired)
}

func TestRefreshRejectsUndecodableAccessToken(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, -time.Minute, 24*time.Hour)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "hello", "world")
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, "garbage", pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestRefreshRejectsUnexpiredAccessToken(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, time.Hour, 24*time.Hour)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "hello", "world")
	require.NoError(t, err)

	// Repeated attempts while the access token is valid always land the same way.
	for i := 0; i < 3; i++ {
		_, err = f.svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
		require.ErrorIs(t, err, ErrNotYetExpirable)
	}
}

func TestRefreshBadSignatureSharesNotExpiredOutcome(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, -time.Minute, 24*time.Hour)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "hello", "world")
	require.NoError(t, err)

	foreign, err := NewTokenService(&config.JWTConfig{
		SecretKey:     "another-access-secret-0123456789abc",
		AccessExpiry:  -time.Minute,
		RefreshExpiry: 24 * time.Hour,
	}, testLogger())
	require.NoError(t, err)

	forged, err := foreign.SignAccess(models.Identity{ID: "hello", Role: "user"})
	require.NoError(t, err)

	// A decodable access token failing verification for any reason other than
	// expiry falls into the not-expired branch.
	_, err = f.svc.Refresh(ctx, forged, pair.RefreshToken)
	require.ErrorIs(t, err, ErrNotYetExpirable)
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, -time.Minute, 24*time.Hour)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "hello", "world")
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, refreshed.AccessToken)
	require.Equal(t, pair.RefreshToken, refreshed.RefreshToken)

	claims := f.tokens.DecodeUnverified(refreshed.AccessToken)
	require.NotNil(t, claims)
	require.Equal(t, "hello", claims.UserID)
	require.Equal(t, "user", claims.Role)

	// The store entry is not rotated by a refresh.
	stored, err := f.store.Get(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, pair.RefreshToken, stored)
}

func TestRefreshRejectsWellSignedButUnstoredRefreshToken(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, -time.Minute, 24*time.Hour)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "hello", "world")
	require.NoError(t, err)

	forged, err := f.tokens.SignRefresh()
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, pair.AccessToken, forged)
	require.ErrorIs(t, err, ErrRefreshMismatch)
}

func TestRefreshRejectsUnknownUser(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, -time.Minute, 24*time.Hour)
	ctx := context.Background()

	access, err := f.tokens.SignAccess(models.Identity{ID: "ghost", Role: "user"})
	require.NoError(t, err)

	refresh, err := f.tokens.SignRefresh()
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, access, refresh)
	require.ErrorIs(t, err, ErrRefreshMismatch)
}

func TestRefreshRejectsExpiredRefreshToken(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, -time.Minute, -time.Minute)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "hello", "world")
	require.NoError(t, err)

	// Stored and presented tokens match, but the refresh token itself is past
	// its window: a fresh login is the only way forward.
	_, err = f.svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshMismatch)
}

func TestSecondLoginSupersedesRefreshToken(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(t, -time.Minute, 24*time.Hour)
	ctx := context.Background()

	first, err := f.svc.Login(ctx, "hello", "world")
	require.NoError(t, err)

	second, err := f.svc.Login(ctx, "hello", "world")
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.Refresh(ctx, first.AccessToken, first.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshMismatch)

	// The superseding refresh token still works with the old access token.
	refreshed, err := f.svc.Refresh(ctx, first.AccessToken, second.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, second.RefreshToken, refreshed.RefreshToken)
}
