package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/rilmas/internal/service"
)

// FriendHandler lists friends and issues invite links. Every route sits
// behind RequireAuth.
type FriendHandler struct {
	friends *service.FriendService
	invites *service.InviteService
	session *service.SessionService
	logger  *slog.Logger
}

func NewFriendHandler(
	friends *service.FriendService,
	invites *service.InviteService,
	session *service.SessionService,
	logger *slog.Logger,
) *FriendHandler {
	return &FriendHandler{
		friends: friends,
		invites: invites,
		session: session,
		logger:  logger,
	}
}

// HandleList returns the friend list in the order friends were added.
//
// HTTP: GET /api/friends
func (h *FriendHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if _, err := currentUser(r, h.session); err != nil {
		logIfInternal(h.logger, "loading current user failed", err)
		writeError(w, err)
		return
	}

	friends, err := h.friends.List(r.Context())
	if err != nil {
		logIfInternal(h.logger, "listing friends failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

// HandleGet returns one friend, e.g. for the chat view header.
//
// HTTP: GET /api/friends/{friendID}
func (h *FriendHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if _, err := currentUser(r, h.session); err != nil {
		logIfInternal(h.logger, "loading current user failed", err)
		writeError(w, err)
		return
	}

	friend, err := h.friends.Get(r.Context(), chi.URLParam(r, "friendID"))
	if err != nil {
		logIfInternal(h.logger, "loading friend failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, friend)
}

// HandleCreateInvite issues an invite code owned by the device user.
//
// HTTP: POST /api/invites
// RESPONSE: 201 {"code": "INV18F3K2ZQ9W0HC", "link": "http://localhost:8080?invite=INV18F3K2ZQ9W0HC"}
func (h *FriendHandler) HandleCreateInvite(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.session)
	if err != nil {
		logIfInternal(h.logger, "loading current user failed", err)
		writeError(w, err)
		return
	}

	inv, err := h.invites.CreateInvite(r.Context(), user.UserID)
	if err != nil {
		logIfInternal(h.logger, "creating invite failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}
