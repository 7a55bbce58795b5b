package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/orderflow/internal/domain/chat"
	"github.com/marketplace/orderflow/internal/infrastructure/api"
	"github.com/marketplace/orderflow/internal/infrastructure/memstore"
	"github.com/marketplace/orderflow/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// ChatHandler serves direct messages and their event stream
type ChatHandler struct {
	BaseHandler
	store     *memstore.Store
	logger    *zap.Logger
	heartbeat time.Duration
}

// ChatOption configures a ChatHandler
type ChatOption func(*ChatHandler)

// WithChatLogger sets the logger for stream lifecycle events
func WithChatLogger(logger *zap.Logger) ChatOption {
	return func(h *ChatHandler) {
		h.logger = logger
	}
}

// WithHeartbeat sets the interval of keep-alive comments on open streams
func WithHeartbeat(interval time.Duration) ChatOption {
	return func(h *ChatHandler) {
		h.heartbeat = interval
	}
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(store *memstore.Store, opts ...ChatOption) *ChatHandler {
	h := &ChatHandler{
		store:     store,
		logger:    zap.NewNop(),
		heartbeat: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// peer resolves the :peer parameter, answering 400 or 404 when unusable
func (h *ChatHandler) peer(c *gin.Context, self string) (string, bool) {
	peerID := c.Param("peer")
	if peerID == self {
		h.Error(c, http.StatusBadRequest, "Cannot chat with yourself")
		return "", false
	}
	if _, err := h.store.User(peerID); err != nil {
		h.Error(c, http.StatusNotFound, "User not found")
		return "", false
	}
	return peerID, true
}

// ListMessages handles GET /chat/:peer/messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	peerID, ok := h.peer(c, actor.ID)
	if !ok {
		return
	}

	msgs := h.store.Messages(actor.ID, peerID)
	payloads := make([]api.MessagePayload, 0, len(msgs))
	for _, m := range msgs {
		payloads = append(payloads, api.NewMessagePayload(m))
	}
	h.Success(c, dto.Response{Messages: payloads})
}

// SendMessage handles POST /chat/:peer/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	peerID, ok := h.peer(c, actor.ID)
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	text, err := chat.ValidateText(req.Content)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	stored := h.store.AppendMessage(chat.Message{From: actor.ID, To: peerID, Text: text})
	payload := api.NewMessagePayload(stored)
	h.Created(c, dto.Response{ChatMessage: &payload})
}

// Stream handles GET /chat/:peer/stream. Every message of the conversation
// stored after the subscription is written as a "message" event.
func (h *ChatHandler) Stream(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	peerID, ok := h.peer(c, actor.ID)
	if !ok {
		return
	}

	msgs, cancel := h.store.Subscribe(actor.ID, peerID)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	log := h.logger.With(zap.String("user_id", actor.ID), zap.String("peer", peerID))
	log.Info("Chat stream opened")

	writeEvent(c.Writer, "connected", fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()))
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			log.Info("Chat stream closed")
			return
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		case m, ok := <-msgs:
			if !ok {
				return
			}
			data, err := json.Marshal(api.NewMessagePayload(m))
			if err != nil {
				log.Error("Failed to marshal chat event", zap.Error(err))
				continue
			}
			writeEvent(c.Writer, "message", string(data))
			c.Writer.Flush()
		}
	}
}

// writeEvent writes a single server-sent event
func writeEvent(w io.Writer, name, data string) {
	if name != "" {
		fmt.Fprintf(w, "event: %s\n", name)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
