package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"github.com/go-multichat/server/internal/config"
	"github.com/go-multichat/server/internal/database"
	"github.com/go-multichat/server/internal/media"
	"github.com/go-multichat/server/internal/objstore"
	"github.com/go-multichat/server/internal/permission"
	"github.com/go-multichat/server/internal/realtime"
	"github.com/go-multichat/server/internal/stats"
)

type ChatApp struct {
	log            *log.Logger
	db             database.ChatRepository
	registry       *permission.Registry
	media          *media.Processor
	store          objstore.ObjectStore
	hub            *realtime.Hub
	stats          stats.StatsProvider
	mux            *http.Server
	signingKey     []byte
	allowedOrigins []string
	avatarBucket   string
	mediaBucket    string
	presignTTL     time.Duration
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, db database.ChatRepository,
	registry *permission.Registry, processor *media.Processor, store objstore.ObjectStore,
	hub *realtime.Hub, st stats.StatsProvider, cfg *config.Config) *ChatApp {

	s := &ChatApp{
		log:            logger,
		db:             db,
		registry:       registry,
		media:          processor,
		store:          store,
		hub:            hub,
		stats:          st,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		avatarBucket:   cfg.AvatarBucket,
		mediaBucket:    cfg.MediaBucket,
		presignTTL:     cfg.PresignTTL,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("PUT /api/account/avatar", s.authMiddleware(s.updateAccountAvatar))
	mux.Handle("DELETE /api/account/avatar", s.authMiddleware(s.deleteAccountAvatar))
	mux.Handle("GET /api/users", s.authMiddleware(s.listUsers))

	mux.Handle("POST /api/chats", s.authMiddleware(s.createChat))
	mux.Handle("GET /api/chats", s.authMiddleware(s.listChats))
	mux.Handle("GET /api/chats/{chatId}", s.authMiddleware(s.getChat))
	mux.Handle("PUT /api/chats/{chatId}/avatar",
		s.authMiddleware(s.requirePermission(permission.ChangeAvatar, s.updateChatAvatar)))

	mux.Handle("GET /api/chats/{chatId}/members", s.authMiddleware(s.getChatMembers))
	mux.Handle("POST /api/chats/{chatId}/members",
		s.authMiddleware(s.requirePermission(permission.UserAdd, s.addChatMember)))
	mux.Handle("PUT /api/chats/{chatId}/members/{userId}/role",
		s.authMiddleware(s.requirePermission(permission.UserRoleChange, s.updateMemberRole)))

	mux.Handle("GET /api/chats/{chatId}/roles", s.authMiddleware(s.getChatRoles))
	mux.Handle("POST /api/chats/{chatId}/roles",
		s.authMiddleware(s.requirePermission(permission.RoleEdit, s.createRole)))

	mux.Handle("GET /api/chats/{chatId}/messages", s.authMiddleware(s.getMessages))
	mux.Handle("POST /api/chats/{chatId}/messages",
		s.authMiddleware(s.requirePermission(permission.MessageTextCreate, s.createTextMessage)))
	mux.Handle("POST /api/chats/{chatId}/messages/media",
		s.authMiddleware(s.requirePermission(permission.MessageMediaCreate, s.createMediaMessage)))
	mux.Handle("PUT /api/chats/{chatId}/messages/{messageId}",
		s.authMiddleware(s.requirePermission(permission.MessageEdit, s.updateMessage)))
	mux.Handle("DELETE /api/chats/{chatId}/messages/{messageId}",
		s.authMiddleware(s.requirePermission(permission.MessageDelete, s.deleteMessage)))

	mux.Handle("PUT /api/chats/{chatId}/messages/{messageId}/reactions",
		s.authMiddleware(s.requirePermission(permission.MessageTextCreate, s.upsertReaction)))
	mux.Handle("DELETE /api/chats/{chatId}/messages/{messageId}/reactions",
		s.authMiddleware(s.deleteReaction))

	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
