package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marketplace/orderflow/internal/domain/chat"
	"go.uber.org/zap"
)

// MessagePayload is a chat message as sent by the backend
type MessagePayload struct {
	ID        string `json:"_id,omitempty"`
	AltID     string `json:"id,omitempty"`
	Sender    string `json:"sender,omitempty"`
	Receiver  string `json:"receiver,omitempty"`
	Content   string `json:"content,omitempty"`
	Text      string `json:"text,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// ToMessage converts the payload to the domain message
func (p MessagePayload) ToMessage() chat.Message {
	m := chat.Message{
		ID:   p.ID,
		From: p.Sender,
		To:   p.Receiver,
		Text: p.Content,
	}
	if m.ID == "" {
		m.ID = p.AltID
	}
	if m.Text == "" {
		m.Text = p.Text
	}
	if t, err := time.Parse(time.RFC3339Nano, p.CreatedAt); err == nil {
		m.SentAt = t
	}
	return m
}

// ListMessages fetches the conversation with peer
func (c *Client) ListMessages(ctx context.Context, peer string) ([]MessagePayload, error) {
	env, err := c.call(ctx, Request{Method: http.MethodGet, Path: "/chat/" + peer + "/messages"})
	if err != nil {
		return nil, err
	}
	if env.Messages == nil {
		return []MessagePayload{}, nil
	}
	return env.Messages, nil
}

// SendMessage posts a message to peer and returns the stored message
func (c *Client) SendMessage(ctx context.Context, peer, text string) (*MessagePayload, error) {
	env, err := c.call(ctx, Request{
		Method: http.MethodPost,
		Path:   "/chat/" + peer + "/messages",
		Body:   map[string]string{"content": text},
	})
	if err != nil {
		return nil, err
	}
	if env.Chat == nil {
		return nil, &Error{Kind: KindServer, StatusCode: http.StatusOK, Message: "response carries no message"}
	}
	return env.Chat, nil
}

// ErrStreamClosed is returned when the server ends a message stream
var ErrStreamClosed = errors.New("message stream closed by server")

// StreamMessages subscribes to server-sent events for the conversation with
// peer and calls handle for every message event. It blocks until ctx is
// cancelled (returning ctx.Err()), the server closes the stream
// (ErrStreamClosed) or the connection fails (*Error of KindTransport).
// Servers without streaming support answer 404, which is returned as an
// *Error of KindNotFound.
func (c *Client) StreamMessages(ctx context.Context, peer string, handle func(MessagePayload)) error {
	u := c.buildURL("/chat/"+peer+"/stream", nil)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	requestID := c.prepare(ctx, httpReq, false)
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		apiErr := transportError(err)
		apiErr.RequestID = requestID
		return apiErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &Error{
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, body),
			RequestID:  requestID,
		}
		if apiErr.Kind == KindUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return apiErr
	}

	err = readEvents(resp.Body, func(ev event) {
		if ev.name != "" && ev.name != "message" {
			return
		}
		var p MessagePayload
		if err := json.Unmarshal([]byte(ev.data), &p); err != nil {
			c.logger.Warn("Dropping malformed chat event", zap.String("peer", peer), zap.Error(err))
			return
		}
		handle(p)
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		apiErr := transportError(err)
		apiErr.RequestID = requestID
		return apiErr
	}
	return ErrStreamClosed
}

type event struct {
	name string
	data string
}

// readEvents parses a text/event-stream body, dispatching each event when
// its terminating blank line arrives. Comments and unknown fields are
// ignored. It returns nil at EOF.
func readEvents(r io.Reader, dispatch func(event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	var (
		name string
		data []string
	)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 {
				dispatch(event{name: name, data: strings.Join(data, "\n")})
			}
			name, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	return scanner.Err()
}

// NewMessagePayload converts a domain message to its wire shape
func NewMessagePayload(m chat.Message) MessagePayload {
	p := MessagePayload{
		ID:       m.ID,
		Sender:   m.From,
		Receiver: m.To,
		Content:  m.Text,
	}
	if !m.SentAt.IsZero() {
		p.CreatedAt = m.SentAt.UTC().Format(time.RFC3339Nano)
	}
	return p
}
