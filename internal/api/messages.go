package api

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-multichat/server/internal/database"
	"github.com/go-multichat/server/internal/realtime"
	"github.com/go-multichat/server/internal/stats"
	"github.com/go-multichat/server/internal/types"
)

type CreateMessageRequest struct {
	Content string `json:"content"`
}

type UpdateMessageRequest struct {
	Content string `json:"content"`
}

type ReactionRequest struct {
	Code string `json:"code"`
}

func (s *ChatApp) createTextMessage(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	chatId, err := strconv.Atoi(r.PathValue("chatId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.db.CreateTextMessage(database.CreateMessageParams{
		ChatId:  chatId,
		UserId:  userId,
		Content: req.Content,
	})
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	view := s.messageView(r, msg)

	s.stats.Incr(stats.MessagesSent)
	s.hub.Broadcast(chatId, &realtime.Event{
		Type:    realtime.EventMessageCreated,
		ChatId:  chatId,
		Message: &view,
	})

	s.writeJson(w, http.StatusCreated, view)
}

// createMediaMessage streams the uploaded file through the media
// pipeline and records the media row and message row atomically. The
// request body is multipart with the file in a "media" part.
func (s *ChatApp) createMediaMessage(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	chatId, err := strconv.Atoi(r.PathValue("chatId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var part *multipart.Part
	for {
		p, err := mr.NextPart()
		if err != nil {
			errResp := NewBadRequestErrorWithMessage("missing media part")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		if p.FormName() == "media" {
			part = p
			break
		}
	}

	declaredType := part.Header.Get("Content-Type")
	if declaredType == "" {
		errResp := NewBadRequestErrorWithMessage("media part has no content type")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	stored, err := s.media.Store(r.Context(), part, declaredType)
	if err != nil {
		errResp := mediaError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.db.CreateMediaMessage(
		database.CreateMediaParams{
			Key:      stored.Key,
			Mimetype: stored.Mimetype,
			Width:    stored.Width,
			Height:   stored.Height,
		},
		database.CreateMessageParams{
			ChatId: chatId,
			UserId: userId,
		},
	)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	view := s.messageView(r, msg)

	s.stats.Incr(stats.MediaUploads)
	s.stats.Incr(stats.MessagesSent)
	s.hub.Broadcast(chatId, &realtime.Event{
		Type:    realtime.EventMessageCreated,
		ChatId:  chatId,
		Message: &view,
	})

	s.writeJson(w, http.StatusCreated, view)
}

func (s *ChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	chatId, _, ok := s.requireMembership(w, r)
	if !ok {
		return
	}

	var limit int
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	var before *time.Time
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		t, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		before = &t
	}

	messages, err := s.db.GetMessages(chatId, limit, before)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	views := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		views = append(views, s.messageView(r, msg))
	}

	s.writeJson(w, http.StatusOK, views)
}

// chatMessage loads a message and verifies it belongs to the chat in
// the request path.
func (s *ChatApp) chatMessage(w http.ResponseWriter, r *http.Request) (database.Message, int, bool) {
	chatId, err := strconv.Atoi(r.PathValue("chatId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Message{}, 0, false
	}

	messageId, err := strconv.Atoi(r.PathValue("messageId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Message{}, 0, false
	}

	msg, err := s.db.GetMessageById(messageId)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Message{}, 0, false
	}

	if msg.ChatId != chatId {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Message{}, 0, false
	}

	return msg, chatId, true
}

func (s *ChatApp) updateMessage(w http.ResponseWriter, r *http.Request) {
	msg, chatId, ok := s.chatMessage(w, r)
	if !ok {
		return
	}

	// Edit rights come from the caller's role, not authorship. Only
	// text messages are editable.
	if !msg.IsText {
		errResp := NewBadRequestErrorWithMessage("media messages cannot be edited")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	updated, err := s.db.UpdateMessageContent(msg.Id, req.Content)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	view := s.messageView(r, updated)

	s.hub.Broadcast(chatId, &realtime.Event{
		Type:    realtime.EventMessageUpdated,
		ChatId:  chatId,
		Message: &view,
	})

	s.writeJson(w, http.StatusOK, view)
}

func (s *ChatApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	msg, chatId, ok := s.chatMessage(w, r)
	if !ok {
		return
	}

	if _, err := s.db.DeleteMessage(msg.Id); err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.hub.Broadcast(chatId, &realtime.Event{
		Type:      realtime.EventMessageDeleted,
		ChatId:    chatId,
		MessageId: msg.Id,
	})

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) upsertReaction(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	msg, chatId, ok := s.chatMessage(w, r)
	if !ok {
		return
	}

	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	reaction, err := s.db.UpsertReaction(msg.Id, userId, req.Code)
	if err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	view := reactionView(reaction)

	s.hub.Broadcast(chatId, &realtime.Event{
		Type:     realtime.EventReactionAdded,
		ChatId:   chatId,
		Reaction: &view,
	})

	s.writeJson(w, http.StatusOK, view)
}

func (s *ChatApp) deleteReaction(w http.ResponseWriter, r *http.Request) {
	chatId, userId, ok := s.requireMembership(w, r)
	if !ok {
		return
	}

	messageId, err := strconv.Atoi(r.PathValue("messageId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteReaction(messageId, userId); err != nil {
		errResp := dbError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.hub.Broadcast(chatId, &realtime.Event{
		Type:      realtime.EventReactionRemoved,
		ChatId:    chatId,
		MessageId: messageId,
		Reaction:  &types.Reaction{MessageId: messageId, UserId: userId},
	})

	s.writeJson(w, http.StatusNoContent, nil)
}
