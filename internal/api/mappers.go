package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-multichat/server/internal/database"
	"github.com/go-multichat/server/internal/types"
)

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func userView(u database.User) types.User {
	return types.User{
		Id:          u.Id,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		AvatarUrl:   u.AvatarUrl,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func chatView(c database.Chat) types.Chat {
	return types.Chat{
		Id:          c.Id,
		Name:        c.Name,
		DisplayName: c.DisplayName,
		Type:        c.Type,
		AvatarUrl:   c.AvatarUrl,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func memberView(m database.ChatMemberInfo) types.ChatMember {
	return types.ChatMember{
		User: userView(m.User),
		Role: m.RoleName,
	}
}

func roleView(r database.Role) types.Role {
	perms := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, p.Name)
	}

	return types.Role{
		Id:          r.Id,
		Name:        r.Name,
		Permissions: perms,
	}
}

func reactionView(r database.Reaction) types.Reaction {
	return types.Reaction{
		MessageId: r.MessageId,
		UserId:    r.UserId,
		Code:      r.Code,
		CreatedAt: r.CreatedAt,
	}
}

// messageView renders a message with its sender. Media messages carry a
// presigned, time-limited URL; a presign failure degrades to an empty
// URL rather than failing the whole listing.
func (s *ChatApp) messageView(r *http.Request, m database.Message) types.Message {
	msg := types.Message{
		Id:       m.Id,
		ChatId:   m.ChatId,
		IsText:   m.IsText,
		Content:  m.Content,
		IsEdited: m.IsEdited,
		User: types.ChatMember{
			User: userView(m.Sender),
			Role: m.SenderRole,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}

	if m.MediaId != "" {
		url, err := s.store.Presign(r.Context(), s.mediaBucket, m.MediaId, s.presignTTL)
		if err != nil {
			s.log.Printf("presign media %s: %v", m.MediaId, err)
		} else {
			msg.MediaUrl = url
		}
	}

	return msg
}
