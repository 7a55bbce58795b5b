// Package chat runs direct conversations between marketplace users on top of
// the backend chat API.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/orderflow/internal/domain/chat"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/domain/shared"
	"github.com/marketplace/orderflow/internal/infrastructure/api"
	"github.com/marketplace/orderflow/internal/infrastructure/logger"
	"github.com/marketplace/orderflow/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultPollInterval is used when streaming is unavailable
const DefaultPollInterval = 5 * time.Second

// localIDPrefix marks optimistic messages the server has not acknowledged
const localIDPrefix = "local-"

// Gateway is the remote chat API
type Gateway interface {
	ListMessages(ctx context.Context, peer string) ([]api.MessagePayload, error)
	SendMessage(ctx context.Context, peer, text string) (*api.MessagePayload, error)
	StreamMessages(ctx context.Context, peer string, handle func(api.MessagePayload)) error
}

// ActorSource returns the signed-in user
type ActorSource interface {
	Actor() (order.Actor, error)
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithPollInterval sets how often conversations are polled without streaming
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithStreaming enables or disables server-sent events
func WithStreaming(enabled bool) Option {
	return func(s *Service) {
		s.stream = enabled
	}
}

// WithClock overrides the time source used for optimistic messages
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type conversation struct {
	server  []chat.Message
	pending []chat.Message
}

func (c *conversation) merged() []chat.Message {
	return chat.Merge(c.server, c.pending)
}

// Service keeps conversations in sync with the backend
type Service struct {
	gateway      Gateway
	actors       ActorSource
	pollInterval time.Duration
	stream       bool
	logger       *zap.Logger
	now          func() time.Time

	mu            sync.Mutex
	conversations map[string]*conversation
}

// NewService creates a chat service
func NewService(gateway Gateway, actors ActorSource, opts ...Option) *Service {
	s := &Service{
		gateway:       gateway,
		actors:        actors,
		pollInterval:  DefaultPollInterval,
		stream:        true,
		logger:        zap.NewNop(),
		now:           time.Now,
		conversations: make(map[string]*conversation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) key(peer string) (string, error) {
	actor, err := s.actors.Actor()
	if err != nil {
		return "", err
	}
	peer = strings.TrimSpace(peer)
	if peer == "" {
		return "", shared.NewDomainError(shared.ErrInvalidInput.Code, "Chat peer is required")
	}
	if peer == actor.ID {
		return "", shared.NewDomainError(shared.ErrInvalidInput.Code, "You cannot chat with yourself")
	}
	return chat.ConversationKey(actor.ID, peer), nil
}

// conversationLocked returns the conversation for key, creating it. s.mu must be held.
func (s *Service) conversationLocked(key string) *conversation {
	c, ok := s.conversations[key]
	if !ok {
		c = &conversation{}
		s.conversations[key] = c
	}
	return c
}

// Messages returns the cached conversation with peer
func (s *Service) Messages(peer string) ([]chat.Message, error) {
	key, err := s.key(peer)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationLocked(key).merged(), nil
}

// List fetches the conversation with peer from the server
func (s *Service) List(ctx context.Context, peer string) ([]chat.Message, error) {
	key, err := s.key(peer)
	if err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "chat", "list",
		telemetry.WithAttribute(telemetry.AttrChatPeer, peer))
	defer span.End()

	payloads, err := s.gateway.ListMessages(ctx, peer)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, classify(ctx, err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	server := make([]chat.Message, 0, len(payloads))
	for _, p := range payloads {
		server = append(server, p.ToMessage())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conversationLocked(key)
	c.server = server
	return c.merged(), nil
}

// Send appends the message locally right away and replaces it with the
// server's copy once acknowledged. A failed send removes the local copy.
func (s *Service) Send(ctx context.Context, peer, text string) (chat.Message, error) {
	key, err := s.key(peer)
	if err != nil {
		return chat.Message{}, err
	}
	text, err = chat.ValidateText(text)
	if err != nil {
		return chat.Message{}, err
	}
	actor, _ := s.actors.Actor()

	ctx, span := telemetry.StartServiceSpan(ctx, "chat", "send",
		telemetry.WithAttribute(telemetry.AttrChatPeer, peer))
	defer span.End()

	local := chat.Message{
		ID:      localIDPrefix + uuid.NewString(),
		From:    actor.ID,
		To:      peer,
		Text:    text,
		SentAt:  s.now(),
		Pending: true,
	}
	s.mu.Lock()
	c := s.conversationLocked(key)
	c.pending = append(c.pending, local)
	s.mu.Unlock()

	payload, err := s.gateway.SendMessage(ctx, peer, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	c = s.conversationLocked(key)
	c.pending = removeMessage(c.pending, local.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.WithLogger(ctx, s.logger).Warn("Failed to send chat message", zap.String("peer", peer), zap.Error(err))
		return chat.Message{}, classify(ctx, err)
	}

	sent := payload.ToMessage()
	if sent.ID == "" {
		sent.ID = local.ID
	}
	if sent.Text == "" {
		sent.Text = text
	}
	if sent.SentAt.IsZero() {
		sent.SentAt = local.SentAt
	}
	if sent.From == "" {
		sent.From = actor.ID
	}
	if sent.To == "" {
		sent.To = peer
	}
	c.server = appendUnique(c.server, sent)
	return sent, nil
}

// Watch keeps the conversation with peer current until ctx is cancelled,
// calling update with the merged conversation after every change. It uses
// the server's event stream when available and polls otherwise. Watch
// returns nil when ctx is cancelled and an error when the session is no
// longer accepted.
func (s *Service) Watch(ctx context.Context, peer string, update func([]chat.Message)) error {
	key, err := s.key(peer)
	if err != nil {
		return err
	}
	log := logger.WithLogger(ctx, s.logger).With(zap.String("peer", peer))

	publish := func(msgs []chat.Message) {
		if ctx.Err() == nil {
			update(msgs)
		}
	}

	msgs, err := s.List(ctx, peer)
	switch {
	case ctx.Err() != nil:
		return nil
	case errors.Is(err, shared.ErrSessionRequired):
		return err
	case err != nil:
		log.Warn("Initial chat load failed", zap.Error(err))
	default:
		publish(msgs)
	}

	streaming := s.stream
	for {
		if streaming {
			err := s.gateway.StreamMessages(ctx, peer, func(p api.MessagePayload) {
				s.mu.Lock()
				c := s.conversationLocked(key)
				c.server = appendUnique(c.server, p.ToMessage())
				merged := c.merged()
				s.mu.Unlock()
				publish(merged)
			})
			switch {
			case ctx.Err() != nil:
				return nil
			case api.IsKind(err, api.KindUnauthorized):
				return classify(ctx, err)
			case api.IsKind(err, api.KindNotFound):
				log.Info("Server does not stream chat, polling instead", zap.Duration("interval", s.pollInterval))
				streaming = false
			default:
				log.Warn("Chat stream interrupted, polling until it can be resumed", zap.Error(err))
			}
		}

		if err := s.poll(ctx, peer, streaming, publish, log); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// poll refreshes the conversation on every tick. With resume set it returns
// after one tick so the caller can try streaming again.
func (s *Service) poll(ctx context.Context, peer string, resume bool, publish func([]chat.Message), log *logger.ContextLogger) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		msgs, err := s.List(ctx, peer)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, shared.ErrSessionRequired):
			return err
		case err != nil:
			log.Debug("Chat poll failed", zap.Error(err))
		default:
			publish(msgs)
		}
		if resume {
			return nil
		}
	}
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	switch api.KindOf(err) {
	case api.KindUnauthorized:
		return fmt.Errorf("%w: %w", shared.ErrSessionRequired, err)
	case api.KindTransport, api.KindServer:
		return fmt.Errorf("%w: %w", shared.ErrRetryable, err)
	case api.KindNotFound:
		return fmt.Errorf("%w: %w", shared.ErrNotFound, err)
	case api.KindForbidden:
		return fmt.Errorf("%w: %w", shared.ErrForbidden, err)
	case "":
		return err
	default:
		var apiErr *api.Error
		errors.As(err, &apiErr)
		return fmt.Errorf("%w: %w", shared.NewDomainError(shared.ErrInvalidInput.Code, apiErr.Message), err)
	}
}

func removeMessage(msgs []chat.Message, id string) []chat.Message {
	out := msgs[:0]
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

func appendUnique(msgs []chat.Message, m chat.Message) []chat.Message {
	for i, existing := range msgs {
		if existing.ID == m.ID {
			msgs[i] = m
			return msgs
		}
	}
	return append(msgs, m)
}
