package api

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-multichat/server/internal/permission"
)

func (s *ChatApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *ChatApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenCookie, err := r.Cookie(tokenCookieKey)
		if err != nil {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		userId, err := s.extractUserIdFromToken(tokenCookie.Value)
		if err != nil {
			s.log.Printf("failed to extract user id from token: %v", err)
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := WithUserId(r.Context(), userId)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}

// requirePermission gates a chat-scoped handler on the caller's role
// holding the given permission in the chat named by the path. Callers
// who are not members are rejected before the permission is consulted.
func (s *ChatApp) requirePermission(perm permission.Permission, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, ok := UserId(r.Context())
		if !ok {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		chatId, err := strconv.Atoi(r.PathValue("chatId"))
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if !s.db.IsChatMember(chatId, userId) {
			errResp := NewNotChatMemberError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		perms, err := s.db.GetChatPermissions(chatId, userId)
		if err != nil {
			errResp := dbError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if !slices.Contains(perms, string(perm)) {
			errResp := NewPermissionDeniedError(string(perm))
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		next(w, r)
	}
}

// requireMembership gates read-only chat surfaces that any member may
// use regardless of role.
func (s *ChatApp) requireMembership(w http.ResponseWriter, r *http.Request) (chatId, userId int, ok bool) {
	userId, authed := UserId(r.Context())
	if !authed {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return 0, 0, false
	}

	chatId, err := strconv.Atoi(r.PathValue("chatId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return 0, 0, false
	}

	if !s.db.IsChatMember(chatId, userId) {
		errResp := NewNotChatMemberError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return 0, 0, false
	}

	return chatId, userId, true
}
