package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tokengate/tokengate/internal/middleware"
	"github.com/tokengate/tokengate/internal/service"
)

// Messages that existing clients match on. Status codes and wording are part
// of the contract.
const (
	MsgPasswordIncorrect  = "password is incorrect"
	MsgNoAuthorized       = "No authorized!"
	MsgAccessNotExpired   = "Access token is not expired!"
	MsgBothTokensRequired = "Access token and refresh token are need for refresh!"
)

type AuthHandlers struct {
	authService *service.AuthService
	logger      *logrus.Logger
}

func NewAuthHandlers(authService *service.AuthService, logger *logrus.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

type LoginRequest struct {
	ID string `json:"id"`
	PW string `json:"pw"`
}

type TokenData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type TokenResponse struct {
	OK   bool      `json:"ok"`
	Data TokenData `json:"data"`
}

type CheckResponse struct {
	OK   bool   `json:"ok"`
	ID   string `json:"id"`
	Role string `json:"role"`
}

type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Login issues an access/refresh token pair for valid credentials. The body
// may be JSON or form encoded.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	req, err := parseLoginRequest(r)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pair, err := h.authService.Login(r.Context(), req.ID, req.PW)
	if err != nil {
		if errors.Is(err, service.ErrCredentialInvalid) {
			h.respondWithError(w, http.StatusUnauthorized, MsgPasswordIncorrect)
			return
		}
		h.logger.WithError(err).Error("Failed to log in")
		h.respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.respondWithJSON(w, http.StatusOK, TokenResponse{
		OK: true,
		Data: TokenData{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		},
	})
}

// Check reports the identity attached by the auth middleware.
func (h *AuthHandlers) Check(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, MsgNoAuthorized)
		return
	}

	h.respondWithJSON(w, http.StatusOK, CheckResponse{
		OK:   true,
		ID:   identity.ID,
		Role: identity.Role,
	})
}

// Refresh exchanges an expired access token (Authorization header) plus the
// stored refresh token (Refresh header) for a new access token.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	accessToken := middleware.BearerToken(r)
	refreshToken := r.Header.Get("Refresh")

	pair, err := h.authService.Refresh(r.Context(), accessToken, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBothTokensRequired):
			h.respondWithError(w, http.StatusBadRequest, MsgBothTokensRequired)
		case errors.Is(err, service.ErrTokenMalformed), errors.Is(err, service.ErrRefreshMismatch):
			h.respondWithError(w, http.StatusUnauthorized, MsgNoAuthorized)
		case errors.Is(err, service.ErrNotYetExpirable):
			h.respondWithError(w, http.StatusBadRequest, MsgAccessNotExpired)
		default:
			h.logger.WithError(err).Error("Failed to refresh tokens")
			h.respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.respondWithJSON(w, http.StatusOK, TokenResponse{
		OK: true,
		Data: TokenData{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		},
	})
}

func parseLoginRequest(r *http.Request) (*LoginRequest, error) {
	var req LoginRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		req.ID = r.PostFormValue("id")
		req.PW = r.PostFormValue("pw")
	}

	req.ID = strings.TrimSpace(req.ID)
	return &req, nil
}

func (h *AuthHandlers) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *AuthHandlers) respondWithError(w http.ResponseWriter, status int, message string) {
	h.respondWithJSON(w, status, ErrorResponse{
		OK:      false,
		Message: message,
	})
}
