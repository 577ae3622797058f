package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tokengate/tokengate/internal/config"
	"github.com/tokengate/tokengate/internal/models"
)

// ReasonExpired is the verification reason for a well-formed access token past
// its expiry. Refresh eligibility branches on this exact literal, and clients
// receive it verbatim, so it must not change.
const ReasonExpired = "jwt expired"

type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	logger        *logrus.Logger
}

func NewTokenService(cfg *config.JWTConfig, logger *logrus.Logger) (*TokenService, error) {
	if len(cfg.SecretKey) < 32 {
		return nil, fmt.Errorf("secret key must be at least 32 bytes")
	}

	refreshSecret := cfg.RefreshSecretKey
	if refreshSecret == "" {
		refreshSecret = cfg.SecretKey
	}

	return &TokenService{
		accessSecret:  []byte(cfg.SecretKey),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  cfg.AccessExpiry,
		refreshExpiry: cfg.RefreshExpiry,
		logger:        logger,
	}, nil
}

// Claims is the access token payload. Refresh tokens carry only the
// registered claims: they prove possession, not identity.
type Claims struct {
	UserID string `json:"id,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// VerifyResult is the outcome of an access token check. Reason is only set
// when OK is false; an expired token yields exactly ReasonExpired.
type VerifyResult struct {
	OK     bool
	ID     string
	Role   string
	Reason string
}

func (s *TokenService) SignAccess(identity models.Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: identity.ID,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpiry)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.accessSecret)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign access token")
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

func (s *TokenService) SignRefresh() (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshExpiry)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.refreshSecret)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign refresh token")
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return signed, nil
}

func (s *TokenService) VerifyAccess(tokenString string) VerifyResult {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc(s.accessSecret))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return VerifyResult{Reason: ReasonExpired}
		}
		return VerifyResult{Reason: err.Error()}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return VerifyResult{Reason: "invalid token"}
	}

	return VerifyResult{OK: true, ID: claims.UserID, Role: claims.Role}
}

// VerifyRefresh checks signature and expiry of a refresh token. Whether the
// token is the one currently on record for a user is the store's question,
// not this one.
func (s *TokenService) VerifyRefresh(tokenString string) bool {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc(s.refreshSecret))
	return err == nil && token.Valid
}

// DecodeUnverified extracts claims without checking signature or expiry.
// It exists to recover the user id from an already-expired access token so a
// refresh can be attempted; the recovered identity is trusted only as a store
// lookup key. Returns nil for structurally invalid input.
func (s *TokenService) DecodeUnverified(tokenString string) *Claims {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil
	}
	return claims
}

func (s *TokenService) keyFunc(secret []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}
}
