package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/rilmas/internal/auth"
	"github.com/sakif/rilmas/internal/service"
	"github.com/sakif/rilmas/internal/storage"
)

// brokenStore fails every call, like a database that went away.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk I/O error")
}
func (brokenStore) Set(context.Context, string, []byte) error { return errors.New("disk I/O error") }
func (brokenStore) Remove(context.Context, string) error { return errors.New("disk I/O error") }

func TestChatHandler_LogsStoreFailures(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	repo := storage.New(brokenStore{}, logger)
	invites, err := service.NewInviteService(repo, "http://localhost:8080", logger)
	require.NoError(t, err)
	session := service.NewSessionService(repo, invites, 0, 0, logger)
	h := NewChatHandler(service.NewChatService(repo, logger), session, logger)

	r := chi.NewRouter()
	r.Get("/api/chats", h.HandleList)
	r.Get("/api/chats/{friendID}", h.HandleOpen)
	r.Post("/api/chats/{friendID}/messages", h.HandleSend)
	r.Post("/api/chats/{friendID}/read", h.HandleMarkRead)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/chats", ""},
		{http.MethodGet, "/api/chats/f1", ""},
		{http.MethodPost, "/api/chats/f1/messages", `{"text":"hi"}`},
		{http.MethodPost, "/api/chats/f1/read", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			logs.Reset()

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req = req.WithContext(auth.WithUserID(req.Context(), "me00"))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.NotContains(t, rec.Body.String(), "disk I/O error", "details stay out of the response")
			assert.Contains(t, logs.String(), "loading current user failed")
			assert.Contains(t, logs.String(), "disk I/O error")
		})
	}
}
