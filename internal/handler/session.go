package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sakif/rilmas/internal/apperror"
	"github.com/sakif/rilmas/internal/auth"
	"github.com/sakif/rilmas/internal/model"
	"github.com/sakif/rilmas/internal/service"
)

// SessionHandler serves app start and the device user's profile.
//
// ROUTES:
//   - GET   /api/session?invite=CODE  → HandleStart (public)
//   - GET   /api/session/phase        → HandlePhase (public)
//   - GET   /api/me                   → HandleMe (RequireAuth)
//   - PATCH /api/me                   → HandleUpdateMe (RequireAuth)
type SessionHandler struct {
	session *service.SessionService
	logger  *slog.Logger
}

func NewSessionHandler(session *service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{session: session, logger: logger}
}

// StartResponse is the bootstrap plus where the client should navigate.
// When StripInvite is true, Location is the same page without the invite
// parameter and the client replaces its URL with it.
type StartResponse struct {
	service.Bootstrap
	Location string `json:"location,omitempty"`
}

// HandleStart runs the session bootstrap for the navigation context carried
// in the query string.
//
// HTTP: GET /api/session?invite=INV18F3K2ZQ9W0HC
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	b, err := h.session.Start(r.Context(), query.Get(service.InviteParam))
	if err != nil {
		logIfInternal(h.logger, "session start failed", err)
		writeError(w, err)
		return
	}

	resp := StartResponse{Bootstrap: b}
	if b.StripInvite {
		query.Del(service.InviteParam)
		resp.Location = (&url.URL{Path: "/", RawQuery: query.Encode()}).String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// PhaseResponse tells a polling client which screen to show. PendingInvite
// is set while an invite waits for a login, so the auth screen can say who
// the user is about to be connected with.
type PhaseResponse struct {
	Phase         service.Phase `json:"phase"`
	PendingInvite string        `json:"pendingInvite,omitempty"`
}

// HandlePhase reports the current screen without touching the invite state.
//
// HTTP: GET /api/session/phase
func (h *SessionHandler) HandlePhase(w http.ResponseWriter, r *http.Request) {
	phase, err := h.session.Phase(r.Context(), time.Now())
	if err != nil {
		logIfInternal(h.logger, "loading phase failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PhaseResponse{
		Phase:         phase,
		PendingInvite: h.session.PendingInvite(),
	})
}

// HandleMe returns the device user.
//
// HTTP: GET /api/me
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.session)
	if err != nil {
		logIfInternal(h.logger, "loading current user failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateMe applies a partial profile update. Absent fields are left
// as they are; userId cannot be sent.
//
// HTTP: PATCH /api/me
// BODY: {"username": "sakif", "avatar": "data:image/png;base64,..."}
func (h *SessionHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	if _, err := currentUser(r, h.session); err != nil {
		logIfInternal(h.logger, "loading current user failed", err)
		writeError(w, err)
		return
	}

	var patch model.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.session.UpdateProfile(r.Context(), patch)
	if err != nil {
		logIfInternal(h.logger, "profile update failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// currentUser returns the device user if it is the one the session token
// was issued to. After a logout, or a login on the same device with another
// phone, old tokens stop working here even though they are still signed.
func currentUser(r *http.Request, session *service.SessionService) (model.User, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return model.User{}, apperror.Unauthorized("valid session required")
	}

	user, err := session.CurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.User{}, apperror.Unauthorized("no user is logged in on this device")
		}
		return model.User{}, err
	}
	if user.UserID != userID {
		return model.User{}, apperror.Unauthorized("session belongs to another user")
	}
	return user, nil
}
