package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/go-multichat/server/internal/database"
	"github.com/go-multichat/server/internal/media"
	"github.com/go-multichat/server/internal/permission"
	"github.com/go-multichat/server/internal/realtime"
	"github.com/go-multichat/server/internal/stats"
	"github.com/go-multichat/server/internal/types"
)

const maxAvatarBytes = 5 << 20

type CreateChatRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

type AddMemberRequest struct {
	UserId int    `json:"user_id"`
	Role   string `json:"role"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

type CreateRoleRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check failed:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ChatApp) listUsers(w http.ResponseWriter, r *http.Request) {
	dbUsers, err := s.db.ListAccounts()
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, userView(u))
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *ChatApp) createChat(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" {
		errResp := NewBadRequestErrorWithMessage("chat name is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Type == "" {
		req.Type = database.ChatTypeGroup
	}
	if req.Type != database.ChatTypePrivate && req.Type != database.ChatTypeGroup {
		errResp := NewBadRequestErrorWithMessage(fmt.Sprintf("unknown chat type %q", req.Type))
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	defaultRoles, err := s.defaultRoleSeeds()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateChatParams{
		Name:          req.Name,
		DisplayName:   req.DisplayName,
		Type:          req.Type,
		CreatorId:     userId,
		DefaultRoles:  defaultRoles,
		OwnerRoleName: permission.RoleOwner,
	}

	newChat, err := s.db.CreateChat(params)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.stats.Incr(stats.ChatsCreated)
	s.writeJson(w, http.StatusCreated, chatView(newChat))
}

// defaultRoleSeeds builds the role set every new chat starts with,
// with permission names resolved to storage ids.
func (s *ChatApp) defaultRoleSeeds() ([]database.RoleSeed, error) {
	names := []string{permission.RoleOwner, permission.RoleAdmin, permission.RoleMember}

	seeds := make([]database.RoleSeed, 0, len(names))
	for _, name := range names {
		ids, err := s.registry.Ids(permission.DefaultRolePermissions[name])
		if err != nil {
			return nil, fmt.Errorf("resolve permissions for role %q: %w", name, err)
		}

		seeds = append(seeds, database.RoleSeed{Name: name, PermissionIds: ids})
	}

	return seeds, nil
}

func (s *ChatApp) listChats(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbChats, err := s.db.ListChatsForUser(userId)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chats := make([]types.Chat, 0, len(dbChats))
	for _, c := range dbChats {
		chats = append(chats, chatView(c))
	}

	s.writeJson(w, http.StatusOK, chats)
}

func (s *ChatApp) getChat(w http.ResponseWriter, r *http.Request) {
	chatId, _, ok := s.requireMembership(w, r)
	if !ok {
		return
	}

	chat, err := s.db.GetChatById(chatId)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, chatView(chat))
}

func (s *ChatApp) getChatMembers(w http.ResponseWriter, r *http.Request) {
	chatId, _, ok := s.requireMembership(w, r)
	if !ok {
		return
	}

	dbMembers, err := s.db.GetChatMembers(chatId)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	members := make([]types.ChatMember, 0, len(dbMembers))
	for _, m := range dbMembers {
		members = append(members, memberView(m))
	}

	s.writeJson(w, http.StatusOK, members)
}

func (s *ChatApp) addChatMember(w http.ResponseWriter, r *http.Request) {
	chatId, err := strconv.Atoi(r.PathValue("chatId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Role == "" {
		req.Role = permission.RoleMember
	}
	if req.Role == permission.RoleOwner {
		errResp := NewBadRequestErrorWithMessage("owner role cannot be assigned")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	role, err := s.db.GetRoleByName(chatId, req.Role)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.AddChatMember(chatId, req.UserId, role.Id); err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(req.UserId)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	member := types.ChatMember{User: userView(user), Role: role.Name}

	s.hub.Broadcast(chatId, &realtime.Event{
		Type:   realtime.EventMemberAdded,
		ChatId: chatId,
		Member: &member,
	})

	s.writeJson(w, http.StatusCreated, member)
}

func (s *ChatApp) updateMemberRole(w http.ResponseWriter, r *http.Request) {
	chatId, err := strconv.Atoi(r.PathValue("chatId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	targetId, err := strconv.Atoi(r.PathValue("userId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateMemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// The owner role is attached once, at chat creation, and never moves.
	if req.Role == permission.RoleOwner {
		errResp := NewBadRequestErrorWithMessage("owner role cannot be assigned")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	members, err := s.db.GetChatMembers(chatId)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	idx := slices.IndexFunc(members, func(m database.ChatMemberInfo) bool {
		return m.User.Id == targetId
	})
	if idx < 0 {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if members[idx].RoleName == permission.RoleOwner {
		errResp := NewBadRequestErrorWithMessage("owner role cannot be changed")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	role, err := s.db.GetRoleByName(chatId, req.Role)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.UpdateMemberRole(chatId, targetId, role.Id); err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	member := types.ChatMember{User: userView(members[idx].User), Role: role.Name}

	s.hub.Broadcast(chatId, &realtime.Event{
		Type:   realtime.EventRoleChanged,
		ChatId: chatId,
		Member: &member,
	})

	s.writeJson(w, http.StatusOK, member)
}

func (s *ChatApp) getChatRoles(w http.ResponseWriter, r *http.Request) {
	chatId, _, ok := s.requireMembership(w, r)
	if !ok {
		return
	}

	dbRoles, err := s.db.GetRolesByChat(chatId)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roles := make([]types.Role, 0, len(dbRoles))
	for _, role := range dbRoles {
		roles = append(roles, roleView(role))
	}

	s.writeJson(w, http.StatusOK, roles)
}

func (s *ChatApp) createRole(w http.ResponseWriter, r *http.Request) {
	chatId, err := strconv.Atoi(r.PathValue("chatId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	perms := make([]permission.Permission, 0, len(req.Permissions))
	for _, name := range req.Permissions {
		perms = append(perms, permission.Permission(name))
	}

	ids, err := s.registry.Ids(perms)
	if err != nil {
		errResp := NewBadRequestErrorWithMessage(err.Error())
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	role, err := s.db.CreateRoleWithPermissions(chatId, req.Name, ids)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, roleView(role))
}

// readAvatar pulls the avatar file out of a multipart form and
// validates it before anything touches storage.
func (s *ChatApp) readAvatar(r *http.Request) ([]byte, *ApiError) {
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		return nil, NewBadRequestError()
	}

	file, _, err := r.FormFile("avatar")
	if err != nil {
		return nil, NewBadRequestError()
	}
	defer file.Close()

	buf, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes+1))
	if err != nil {
		return nil, NewInternalServerError(err)
	}
	if len(buf) > maxAvatarBytes {
		return nil, NewBadRequestErrorWithMessage("avatar too large")
	}

	if err := media.ValidateAvatar(buf); err != nil {
		return nil, mediaError(err)
	}

	return buf, nil
}

// storeAvatar writes validated avatar bytes under a content-addressed
// key and returns the public URL. Re-uploading identical bytes lands on
// the same object.
func (s *ChatApp) storeAvatar(r *http.Request, buf []byte) (string, *ApiError) {
	key := fmt.Sprintf("%x.jpg", sha256.Sum256(buf))

	if err := s.store.Put(r.Context(), s.avatarBucket, key, bytes.NewReader(buf), "image/jpeg"); err != nil {
		return "", NewInternalServerError(err)
	}

	return s.store.PublicURL(s.avatarBucket, key), nil
}

func (s *ChatApp) updateAccountAvatar(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	buf, apiErr := s.readAvatar(r)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	url, apiErr := s.storeAvatar(r, buf)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	user, err := s.db.UpdateAccountAvatar(userId, url)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, userView(user))
}

func (s *ChatApp) deleteAccountAvatar(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.UpdateAccountAvatar(userId, "")
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, userView(user))
}

func (s *ChatApp) updateChatAvatar(w http.ResponseWriter, r *http.Request) {
	chatId, err := strconv.Atoi(r.PathValue("chatId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	buf, apiErr := s.readAvatar(r)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	url, apiErr := s.storeAvatar(r, buf)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	chat, err := s.db.UpdateChatAvatar(chatId, url)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, chatView(chat))
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	id, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(id)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := realtime.NewClient(userView(user), conn, s.hub, s.log)

	s.hub.RegisterChan <- client
	go client.Write()
	go client.Read()
}
