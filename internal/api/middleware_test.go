package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-multichat/server/internal/database"
	"github.com/go-multichat/server/internal/permission"
)

func TestAuthMiddleware(t *testing.T) {
	mockRepo := &database.MockChatRepository{}
	app, _ := newTestApp(t, mockRepo)

	handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		userId, ok := UserId(r.Context())
		assert.True(t, ok, "expected user id in context")
		assert.Equal(t, 42, userId, "expected user id from token")
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		handler(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected 401 without token cookie")
	})

	t.Run("invalid token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "garbage"})
		handler(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected 401 with bad token")
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := app.createJwtForSession(42, defaultJwtExpiration)
		assert.NoError(t, err, "expected token to be created")

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})
		handler(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, "expected 200 with valid token")
	})
}

func TestRequirePermission(t *testing.T) {
	tcases := []struct {
		name         string
		chatIdPath   string
		isMember     bool
		perms        []string
		expectedCode int
		expectedMsg  string
	}{
		{
			name:         "permission held",
			chatIdPath:   "1",
			isMember:     true,
			perms:        []string{"message.text.create", "message.media.create"},
			expectedCode: http.StatusOK,
		},
		{
			name:         "not a member",
			chatIdPath:   "1",
			isMember:     false,
			expectedCode: http.StatusForbidden,
			expectedMsg:  "not a member of this chat",
		},
		{
			name:         "member without permission",
			chatIdPath:   "1",
			isMember:     true,
			perms:        []string{"message.media.create"},
			expectedCode: http.StatusForbidden,
			expectedMsg:  `missing permission "message.text.create"`,
		},
		{
			name:         "member with empty role",
			chatIdPath:   "1",
			isMember:     true,
			perms:        []string{},
			expectedCode: http.StatusForbidden,
			expectedMsg:  `missing permission "message.text.create"`,
		},
		{
			name:         "invalid chat id",
			chatIdPath:   "abc",
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.chatIdPath == "1" {
				mockRepo.On("IsChatMember", 1, 7).Return(tc.isMember).Once()
				if tc.isMember {
					mockRepo.On("GetChatPermissions", 1, 7).Return(tc.perms, nil).Once()
				}
			}

			app, _ := newTestApp(t, mockRepo)

			handler := app.requirePermission(permission.MessageTextCreate, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/chats/"+tc.chatIdPath+"/messages", nil)
			req.SetPathValue("chatId", tc.chatIdPath)
			req = req.WithContext(WithUserId(req.Context(), 7))

			handler(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code, "expected status code to match")
			if tc.expectedMsg != "" {
				var apiErr ApiError
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&apiErr), "expected error body to decode")
				assert.Equal(t, tc.expectedMsg, apiErr.Message, "expected error message to name the denial reason")
			}
		})
	}
}

func TestRequirePermissionUnauthenticated(t *testing.T) {
	mockRepo := &database.MockChatRepository{}
	app, _ := newTestApp(t, mockRepo)

	handler := app.requirePermission(permission.MessageTextCreate, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chats/1/messages", nil)
	req.SetPathValue("chatId", "1")

	handler(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected 401 without user in context")
}

func TestErrorHandlerRecoversPanic(t *testing.T) {
	mockRepo := &database.MockChatRepository{}
	app, _ := newTestApp(t, mockRepo)

	handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected panic to become 500")
}
