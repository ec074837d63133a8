package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lpusphere/sphere-server/internal/core"
	"github.com/lpusphere/sphere-server/internal/directory"
	"github.com/lpusphere/sphere-server/internal/store"
	"github.com/lpusphere/sphere-server/internal/unread"
)

// ChatHandlers provides HTTP handlers for the chat endpoints.
type ChatHandlers struct {
	store      store.Store
	directory  *directory.Directory
	dispatcher *core.Dispatcher
	unread     *unread.Tracker
	log        *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(
	st store.Store,
	dir *directory.Directory,
	dispatcher *core.Dispatcher,
	tracker *unread.Tracker,
	logger *zerolog.Logger,
) *ChatHandlers {
	return &ChatHandlers{
		store:      st,
		directory:  dir,
		dispatcher: dispatcher,
		unread:     tracker,
		log:        logger,
	}
}

// ChatResponse is one entry in the caller's chat list.
type ChatResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code,omitempty"`
	LastMessage string `json:"lastMessage,omitempty"`
	Time        string `json:"time,omitempty"`
	Unread      int    `json:"unread"`
}

// ChatsResponse wraps the chat list.
type ChatsResponse struct {
	Chats []ChatResponse `json:"chats"`
}

// MessagesResponse wraps a room's message history.
type MessagesResponse struct {
	Messages []MessagePayloadResponse `json:"messages"`
}

// MessageResponse wraps a single persisted message.
type MessageResponse struct {
	Message MessagePayloadResponse `json:"message"`
}

// MessagePayloadResponse represents a message in API responses.
type MessagePayloadResponse struct {
	ID          int64  `json:"id"`
	ClassID     string `json:"classId"`
	SenderRegNo string `json:"senderRegNo"`
	SenderName  string `json:"senderName"`
	Text        string `json:"text"`
	CreatedAt   string `json:"createdAt"`
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// ListChats returns the rooms the caller belongs to, with last-message
// preview and server-owned unread counts.
// GET /api/chats
func (h *ChatHandlers) ListChats(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	ctx := c.Request.Context()

	classes, err := h.store.ListClassesForMember(ctx, identity.RegNo)
	if err != nil {
		h.log.Error().Err(err).Str("reg_no", identity.RegNo).Msg("failed to list classes")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	counts, err := h.unread.CountsFor(ctx, identity.RegNo)
	if err != nil {
		h.log.Error().Err(err).Str("reg_no", identity.RegNo).Msg("failed to load unread counts")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	chats := make([]ChatResponse, 0, len(classes))
	for _, class := range classes {
		chat := ChatResponse{
			ID:     class.ID,
			Name:   class.Name,
			Code:   class.Code,
			Unread: counts[class.ID],
		}

		last, err := h.store.LastMessage(ctx, class.ID)
		switch {
		case err == nil:
			chat.LastMessage = last.Text
			chat.Time = last.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
		case errors.Is(err, store.ErrNotFound):
			// Room without messages yet.
		default:
			h.log.Error().Err(err).Str("class_id", class.ID).Msg("failed to load last message")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}

		chats = append(chats, chat)
	}

	c.JSON(http.StatusOK, ChatsResponse{Chats: chats})
}

// GetMessages returns the full ordered history of a room.
// GET /api/chats/:classId/messages
func (h *ChatHandlers) GetMessages(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	classID := c.Param("classId")
	ctx := c.Request.Context()

	// Fresh membership read on every history fetch.
	membership, err := h.directory.Resolve(ctx, classID)
	if err != nil {
		if errors.Is(err, directory.ErrClassNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "class not found"})
			return
		}
		h.log.Error().Err(err).Str("class_id", classID).Msg("failed to resolve class")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !membership.Authorized(identity.RegNo) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not authorized"})
		return
	}

	messages, err := h.store.ListMessagesSince(ctx, classID, nil)
	if err != nil {
		h.log.Error().Err(err).Str("class_id", classID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := MessagesResponse{Messages: make([]MessagePayloadResponse, 0, len(messages))}
	for _, msg := range messages {
		response.Messages = append(response.Messages, messagePayloadResponse(msg))
	}

	c.JSON(http.StatusOK, response)
}

// PostMessage runs the full fan-out pipeline for an HTTP send.
// POST /api/chats/:classId/messages
func (h *ChatHandlers) PostMessage(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	classID := c.Param("classId")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "text required"})
		return
	}

	msg, err := h.dispatcher.Dispatch(c.Request.Context(), identity, classID, req.Text)
	if err != nil {
		status, message := statusFromDispatchError(err)
		if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
			h.log.Error().Err(err).Str("class_id", classID).Msg("dispatch failed")
		}
		c.JSON(status, ErrorResponse{Error: message})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: messagePayloadResponse(msg)})
}

// statusFromDispatchError maps the dispatcher taxonomy onto HTTP statuses.
func statusFromDispatchError(err error) (int, string) {
	var storageErr *core.StorageError
	switch {
	case errors.Is(err, core.ErrEmptyMessage):
		return http.StatusBadRequest, "text required"
	case errors.Is(err, directory.ErrClassNotFound):
		return http.StatusNotFound, "class not found"
	case errors.Is(err, core.ErrNotAuthorized):
		return http.StatusForbidden, "not authorized"
	case errors.As(err, &storageErr):
		// Durable layer failed before broadcast; the client may resubmit.
		return http.StatusServiceUnavailable, "storage unavailable, retry"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func messagePayloadResponse(msg *store.Message) MessagePayloadResponse {
	return MessagePayloadResponse{
		ID:          msg.ID,
		ClassID:     msg.ClassID,
		SenderRegNo: msg.SenderRegNo,
		SenderName:  msg.SenderName,
		Text:        msg.Text,
		CreatedAt:   msg.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
