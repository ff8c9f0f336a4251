package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/rilmas/internal/service"
)

// ChatHandler serves the chat list and the chat view. Every route sits
// behind RequireAuth; {friendID} is a chi URL parameter.
type ChatHandler struct {
	chats   *service.ChatService
	session *service.SessionService
	logger  *slog.Logger
}

func NewChatHandler(chats *service.ChatService, session *service.SessionService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, session: session, logger: logger}
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// HandleList returns every chat keyed by friend id.
//
// HTTP: GET /api/chats
func (h *ChatHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if _, err := currentUser(r, h.session); err != nil {
		logIfInternal(h.logger, "loading current user failed", err)
		writeError(w, err)
		return
	}

	chats, err := h.chats.List(r.Context())
	if err != nil {
		logIfInternal(h.logger, "listing chats failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// HandleOpen returns one chat as it was and marks it read, like opening the
// chat view does.
//
// HTTP: GET /api/chats/{friendID}
func (h *ChatHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	if _, err := currentUser(r, h.session); err != nil {
		logIfInternal(h.logger, "loading current user failed", err)
		writeError(w, err)
		return
	}

	c, err := h.chats.Open(r.Context(), chi.URLParam(r, "friendID"))
	if err != nil {
		logIfInternal(h.logger, "opening chat failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleSend appends a message from the device user.
//
// HTTP: POST /api/chats/{friendID}/messages
// BODY: {"text": "gg"}
func (h *ChatHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.session)
	if err != nil {
		logIfInternal(h.logger, "loading current user failed", err)
		writeError(w, err)
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	m, err := h.chats.Send(r.Context(), chi.URLParam(r, "friendID"), user.UserID, req.Text)
	if err != nil {
		logIfInternal(h.logger, "sending message failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleMarkRead marks a chat read without returning it.
//
// HTTP: POST /api/chats/{friendID}/read
func (h *ChatHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	if _, err := currentUser(r, h.session); err != nil {
		logIfInternal(h.logger, "loading current user failed", err)
		writeError(w, err)
		return
	}

	if err := h.chats.MarkAsRead(r.Context(), chi.URLParam(r, "friendID")); err != nil {
		logIfInternal(h.logger, "marking chat read failed", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
