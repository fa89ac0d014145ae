package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/whisper-chat/relay/internal/domain"
	"github.com/whisper-chat/relay/internal/repository"
	"github.com/whisper-chat/relay/internal/transport/http/middleware"
)

// MessageHandler serves conversation history. Sending goes through the
// WebSocket protocol, not this surface.
type MessageHandler struct {
	messageRepo repository.MessageRepository
}

func NewMessageHandler(messageRepo repository.MessageRepository) *MessageHandler {
	return &MessageHandler{messageRepo: messageRepo}
}

type messageListResponse struct {
	Messages []domain.Message `json:"messages"`
}

// List returns messages between the authenticated user and a peer, oldest
// first, with cursor pagination.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	peerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	var before *uuid.UUID
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		id, err := uuid.Parse(beforeStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid before cursor")
			return
		}
		before = &id
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	messages, err := h.messageRepo.ListConversation(r.Context(), userID, peerID, before, limit)
	if err != nil {
		log.Printf("ERROR list messages: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	writeJSON(w, http.StatusOK, messageListResponse{Messages: messages})
}
