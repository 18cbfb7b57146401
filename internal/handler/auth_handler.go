package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lifestyle-api/internal/models"
	"lifestyle-api/internal/service"
	"lifestyle-api/internal/session"
	"lifestyle-api/internal/util"
)

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	auth   *service.AuthService
	issuer *session.Issuer
	cookie CookieConfig
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, issuer *session.Issuer, cookie CookieConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, issuer: issuer, cookie: cookie, logger: logger}
}

type loginResponse struct {
	Token   string           `json:"token"`
	Expires time.Time        `json:"expires"`
	User    *models.Identity `json:"user"`
}

// RegisterRoutes mounts the public auth routes. protected wraps the routes
// that need a session.
func (h *AuthHandler) RegisterRoutes(router chi.Router, protected func(http.Handler) http.Handler) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/signup", h.Signup)
		r.Post("/logout", h.Logout)
		r.With(protected).Get("/session", h.Session)
	})
}

// Login exchanges credentials for a session token
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} loginResponse
// @Failure 400,401,403,429,500 {object} errorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, msgInvalidBody)
		return
	}

	identity, err := h.auth.Authenticate(r.Context(), creds, requestMeta(r))
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.issueSession(w, r, http.StatusOK, identity)
}

// Signup creates an account and logs it in with the same credentials
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Success 201 {object} loginResponse
// @Failure 400,409,429,500 {object} errorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, msgInvalidBody)
		return
	}

	meta := requestMeta(r)
	user, err := h.auth.Register(r.Context(), req, meta)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	identity, err := h.auth.Authenticate(r.Context(), service.Credentials{Email: user.Email, Password: req.Password}, meta)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.issueSession(w, r, http.StatusCreated, identity)
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, session.FromContext(r.Context()))
}

// Logout expires the cookie. Tokens are stateless, so a copied token stays
// valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	respondWithJSON(w, h.logger, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, status int, identity *models.Identity) {
	token, err := h.issuer.Encode(identity)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.Expires,
		MaxAge:   int(time.Until(token.Expires).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Debug("Session issued", util.String("user_id", identity.ID))
	respondWithJSON(w, h.logger, status, loginResponse{
		Token:   token.Value,
		Expires: token.Expires,
		User:    identity,
	})
}
