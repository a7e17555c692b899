package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/RichardoC/pad-chat/internal/models"
	"github.com/RichardoC/pad-chat/internal/store"
	"github.com/RichardoC/pad-chat/internal/stream"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	// ErrSendInProgress is returned when SendTurn is called while another
	// send on the same controller has not finished.
	ErrSendInProgress = errors.New("a message is already being sent")
	ErrEmptyMessage   = errors.New("message is empty")
)

// Completer is the remote chat completion API.
type Completer interface {
	StreamCompletion(ctx context.Context, apiKey string, messages []models.Message) (io.ReadCloser, error)
	GenerateTitle(ctx context.Context, apiKey string, messages []models.Message) (string, error)
}

type Controller struct {
	store          *store.Store
	llm            Completer
	logger         *zap.Logger
	now            func() time.Time
	generateTitles bool
	fallbackKey    string

	sending sync.Mutex
}

type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithTitleGeneration toggles generating a title after the first turn of a
// new conversation. It is on by default.
func WithTitleGeneration(enabled bool) Option {
	return func(c *Controller) { c.generateTitles = enabled }
}

// WithFallbackKey sets the bearer token used when the store has no API_KEY.
func WithFallbackKey(key string) Option {
	return func(c *Controller) { c.fallbackKey = key }
}

func New(st *store.Store, llm Completer, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		store:          st,
		llm:            llm,
		logger:         logger,
		now:            time.Now,
		generateTitles: true,
		fallbackKey:    os.Getenv("OPENAI_API_KEY"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Restore rebuilds the session from the store: the last active conversation
// when it still exists, a pending one otherwise.
func (c *Controller) Restore() (Session, error) {
	id, err := c.store.ActiveID()
	if err != nil {
		return Session{}, fmt.Errorf("failed to read active conversation: %w", err)
	}
	if id == "" {
		return Session{}, nil
	}
	conv, ok, err := c.store.Get(id)
	if err != nil {
		return Session{}, fmt.Errorf("failed to load conversation: %w", err)
	}
	if !ok {
		c.logger.Warn("active conversation no longer exists", zap.String("id", id))
		if err := c.store.ClearActiveID(); err != nil {
			return Session{}, fmt.Errorf("failed to clear active conversation: %w", err)
		}
		return Session{}, nil
	}
	return Session{ActiveID: id, Messages: append([]models.Message(nil), conv.Messages...)}, nil
}

func (c *Controller) apiKey() (string, error) {
	key, err := c.store.APIKey()
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	if key == "" {
		key = c.fallbackKey
	}
	return key, nil
}

// userMessage builds the outgoing user turn. Without usable attachments the
// content is plain text; otherwise it is a text part followed by one image
// part per image attachment. Attachments of any other media type are
// dropped.
func (c *Controller) userMessage(text string, attachments []models.Attachment) models.Message {
	var images []models.Part
	for _, att := range attachments {
		if !att.IsImage() {
			c.logger.Warn("attachment not supported, dropping it",
				zap.String("url", att.URL),
				zap.String("type", att.MediaType))
			continue
		}
		images = append(images, models.Part{
			Type:     models.PartImageURL,
			ImageURL: &models.ImageURL{URL: att.URL},
		})
	}
	if len(images) == 0 {
		return models.TextMessage(models.RoleUser, text)
	}
	parts := append([]models.Part{{Type: models.PartText, Text: text}}, images...)
	return models.Message{Role: models.RoleUser, Content: models.Parts(parts...)}
}

// SendTurn appends a user turn, streams the assistant reply into view and
// persists the conversation. A pending session is materialised as a new
// conversation first; once its first reply is stored a title is generated
// for it.
//
// On a transport or HTTP failure the returned session still holds the new
// user turn and the error is returned unchanged in its chain.
func (c *Controller) SendTurn(ctx context.Context, sess Session, text string, attachments []models.Attachment, view View) (Session, string, error) {
	if strings.TrimSpace(text) == "" {
		return sess, "", ErrEmptyMessage
	}
	if !c.sending.TryLock() {
		return sess, "", ErrSendInProgress
	}
	defer c.sending.Unlock()

	if view == nil {
		view = nopView{}
	}

	next := sess.clone()
	next.Messages = append(next.Messages, c.userMessage(text, attachments))

	isNew := false
	if next.Pending() {
		conv, err := c.store.Create(c.now())
		if err != nil {
			return next, "", err
		}
		next.ActiveID = conv.ID
		isNew = true
		c.logger.Info("started conversation", zap.String("id", conv.ID))
	}

	key, err := c.apiKey()
	if err != nil {
		return next, "", err
	}

	view.Thinking()
	body, err := c.llm.StreamCompletion(ctx, key, next.Messages)
	if err != nil {
		return next, "", fmt.Errorf("failed to send message: %w", err)
	}
	reply, err := stream.Assemble(ctx, body, view.Delta)
	err = multierr.Append(err, body.Close())
	if err != nil {
		return next, "", fmt.Errorf("failed to read reply: %w", err)
	}
	view.Finish(reply)

	next.Messages = append(next.Messages, models.TextMessage(models.RoleAssistant, reply))
	if err := c.persist(next); err != nil {
		return next, reply, err
	}

	if isNew && c.generateTitles {
		c.titleConversation(ctx, key, next)
	}
	return next, reply, nil
}

// persist writes the session transcript back and bumps lastUsed.
func (c *Controller) persist(sess Session) error {
	now := models.MillisOf(c.now())
	err := c.store.Update(func(chats store.Chats) error {
		conv, ok := chats[sess.ActiveID]
		if !ok {
			return fmt.Errorf("%w: %s", store.ErrNotFound, sess.ActiveID)
		}
		conv.Messages = append([]models.Message(nil), sess.Messages...)
		conv.LastUsed = now
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func (c *Controller) titleConversation(ctx context.Context, key string, sess Session) {
	title, err := c.llm.GenerateTitle(ctx, key, sess.Messages)
	if err != nil {
		c.logger.Warn("title generation failed", zap.String("id", sess.ActiveID), zap.Error(err))
		return
	}
	renamed, err := c.store.Rename(sess.ActiveID, title)
	if err != nil {
		c.logger.Warn("failed to store generated title", zap.String("id", sess.ActiveID), zap.Error(err))
		return
	}
	if !renamed {
		c.logger.Debug("generated title rejected", zap.String("id", sess.ActiveID), zap.String("title", title))
	}
}

// GenerateTitle asks the completion API for a short title describing
// transcript. The raw answer is returned; callers decide whether to keep it.
func (c *Controller) GenerateTitle(ctx context.Context, transcript []models.Message) (string, error) {
	key, err := c.apiKey()
	if err != nil {
		return "", err
	}
	return c.llm.GenerateTitle(ctx, key, transcript)
}

// WriteBack stores the session transcript into its conversation without
// touching lastUsed. Pending sessions have nothing to write.
func (c *Controller) WriteBack(sess Session) error {
	if sess.Pending() {
		return nil
	}
	err := c.store.Update(func(chats store.Chats) error {
		conv, ok := chats[sess.ActiveID]
		if !ok {
			c.logger.Error("conversation doesn't exist", zap.String("id", sess.ActiveID))
			return nil
		}
		conv.Messages = append([]models.Message(nil), sess.Messages...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// SwitchActive saves the current transcript and activates id. An unknown
// id leaves the session as it was.
func (c *Controller) SwitchActive(sess Session, id string) (Session, error) {
	if err := c.WriteBack(sess); err != nil {
		return sess, err
	}
	conv, ok, err := c.store.Get(id)
	if err != nil {
		return sess, fmt.Errorf("failed to load conversation: %w", err)
	}
	if !ok {
		c.logger.Debug("switch to unknown conversation ignored", zap.String("id", id))
		return sess, nil
	}
	if err := c.store.SetActiveID(id); err != nil {
		return sess, fmt.Errorf("failed to activate conversation: %w", err)
	}
	return Session{ActiveID: id, Messages: append([]models.Message(nil), conv.Messages...)}, nil
}

// CreatePending saves the current transcript and returns an empty pending
// session. Nothing is stored for it until the first SendTurn.
func (c *Controller) CreatePending(sess Session) (Session, error) {
	if err := c.WriteBack(sess); err != nil {
		return sess, err
	}
	if err := c.store.ClearActiveID(); err != nil {
		return sess, fmt.Errorf("failed to clear active conversation: %w", err)
	}
	return Session{}, nil
}

// Delete removes id from the store. Deleting the active conversation
// leaves the session pending.
func (c *Controller) Delete(sess Session, id string) (Session, error) {
	deleted, err := c.store.Delete(id)
	if err != nil {
		return sess, err
	}
	if deleted {
		c.logger.Info("deleted conversation", zap.String("id", id))
	}
	if sess.ActiveID == id {
		return Session{}, nil
	}
	return sess, nil
}

// Rename sets a conversation title; blank titles and unknown ids are ignored.
func (c *Controller) Rename(id, title string) (bool, error) {
	return c.store.Rename(id, title)
}
