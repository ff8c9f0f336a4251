package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoUserID writes the userId RequireAuth put in the context.
var echoUserID = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromContext(r.Context())
	w.Write([]byte(id))
})

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, err := ts.Generate("d0abc123")
	require.NoError(t, err)
	expired, err := ts.GenerateWithDuration("d0abc123", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		cookie     *http.Cookie
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid cookie",
			cookie:     &http.Cookie{Name: CookieName, Value: valid},
			wantStatus: http.StatusOK,
			wantBody:   "d0abc123",
		},
		{
			name:       "no cookie",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			cookie:     &http.Cookie{Name: CookieName, Value: expired},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			cookie:     &http.Cookie{Name: CookieName, Value: "garbage"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token under another cookie name",
			cookie:     &http.Cookie{Name: "session", Value: valid},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()

			RequireAuth(ts)(echoUserID).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"unauthorized"`)
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	id, ok := UserIDFromContext(req.Context())
	assert.False(t, ok)
	assert.Empty(t, id)

	_, ok = UserIDFromContext(WithUserID(req.Context(), ""))
	assert.False(t, ok, "an empty id is not authenticated")
}
