package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/rilmas/internal/auth"
	"github.com/sakif/rilmas/internal/service"
)

// AuthHandler runs the phone login and logout.
//
// ROUTES:
//   - POST /auth/code    → HandleRequestCode
//   - POST /auth/verify  → HandleVerify (sets the session cookie)
//   - POST /auth/logout  → HandleLogout (clears it)
type AuthHandler struct {
	auth    *service.AuthService
	session *service.SessionService
	tokens  *auth.TokenService
	logger  *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	session *service.SessionService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:    authService,
		session: session,
		tokens:  tokens,
		logger:  logger,
	}
}

type requestCodeRequest struct {
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// HandleRequestCode issues a one-time code for a phone number.
//
// HTTP: POST /auth/code
// BODY: {"phone": "+79991234567"}
//
// There is no SMS gateway: the code comes back in the response body.
func (h *AuthHandler) HandleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.RequestCode(r.Context(), req.Phone)
	if err != nil {
		logIfInternal(h.logger, "requesting code failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleVerify logs the device in and sets the session cookie.
//
// HTTP: POST /auth/verify
// BODY: {"phone": "+79991234567", "code": "004219"}
//
// The cookie is HttpOnly so page scripts cannot read it, and SameSite=Lax so
// cross-site POSTs do not carry it. Secure is off because the API is served
// over plain HTTP on localhost.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Verify(r.Context(), req.Phone, req.Code)
	if err != nil {
		logIfInternal(h.logger, "verifying code failed", err)
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, res)
}

// HandleLogout removes the device user and deletes the cookie. Only the
// holder of the device user's session may do this; a stale or foreign
// cookie gets a 401 and the device user stays.
//
// HTTP: POST /auth/logout (RequireAuth)
//
// POST, not GET, so a prefetch or an <img> tag cannot log anyone out.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if _, err := currentUser(r, h.session); err != nil {
		logIfInternal(h.logger, "loading current user failed", err)
		writeError(w, err)
		return
	}

	if err := h.session.Logout(r.Context()); err != nil {
		logIfInternal(h.logger, "logout failed", err)
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
