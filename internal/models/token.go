package models

import "time"

// Identity is the authenticated principal as carried inside an access token.
type Identity struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshTokenRecord is the persisted form of a refresh token entry. At most
// one record exists per user id; a later login overwrites it.
type RefreshTokenRecord struct {
	UserID    string    `json:"user_id" dynamodbav:"UserID"`
	Token     string    `json:"token" dynamodbav:"Token"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"CreatedAt"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"ExpiresAt"`
}
