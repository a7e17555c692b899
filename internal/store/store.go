// Package store persists conversations as a single JSON blob in a flat
// key-value backend, alongside the active conversation pointer and the
// API key.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RichardoC/pad-chat/internal/db"
	"github.com/RichardoC/pad-chat/internal/models"
	"go.uber.org/zap"
)

const (
	KeyChats         = "chats"
	KeyCurrentChatID = "currentChatId"
	KeyAPIKey        = "API_KEY"
)

var ErrNotFound = errors.New("conversation not found")

// Chats maps conversation id to conversation, the shape of the chats blob.
type Chats map[string]*models.Conversation

type Store struct {
	kv     db.KV
	logger *zap.Logger
}

func New(kv db.KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, logger: logger}
}

func (s *Store) Close() error {
	return s.kv.Close()
}

func readChats(tx db.Tx) (Chats, error) {
	raw, ok, err := tx.Get(KeyChats)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", KeyChats, err)
	}
	chats := Chats{}
	if !ok || strings.TrimSpace(raw) == "" {
		return chats, nil
	}
	if err := json.Unmarshal([]byte(raw), &chats); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", KeyChats, err)
	}
	if chats == nil {
		return nil, fmt.Errorf("failed to parse %s: not an object", KeyChats)
	}
	for id, conv := range chats {
		if conv == nil {
			delete(chats, id)
		}
	}
	return chats, nil
}

func writeChats(tx db.Tx, chats Chats) error {
	data, err := json.Marshal(chats)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", KeyChats, err)
	}
	return tx.Put(KeyChats, string(data))
}

// update is the single read-modify-write unit over the chats blob. fn runs
// inside one backend transaction and may also touch other keys through tx.
// Returning an error aborts the transaction without writing.
func (s *Store) update(fn func(tx db.Tx, chats Chats) error) error {
	return s.kv.Update(func(tx db.Tx) error {
		chats, err := readChats(tx)
		if err != nil {
			return err
		}
		if err := fn(tx, chats); err != nil {
			return err
		}
		return writeChats(tx, chats)
	})
}

// Update runs fn against the current chats map and writes the result back
// atomically.
func (s *Store) Update(fn func(chats Chats) error) error {
	return s.update(func(_ db.Tx, chats Chats) error {
		return fn(chats)
	})
}

func (s *Store) Load() (Chats, error) {
	var chats Chats
	err := s.kv.View(func(tx db.Tx) error {
		var err error
		chats, err = readChats(tx)
		return err
	})
	return chats, err
}

func (s *Store) Get(id string) (*models.Conversation, bool, error) {
	chats, err := s.Load()
	if err != nil {
		return nil, false, err
	}
	conv, ok := chats[id]
	return conv, ok, nil
}

// Save inserts or replaces conv.
func (s *Store) Save(conv *models.Conversation) error {
	if conv == nil || conv.ID == "" {
		return errors.New("cannot save a conversation without an id")
	}
	stored := *conv
	stored.Messages = append([]models.Message(nil), conv.Messages...)
	return s.Update(func(chats Chats) error {
		chats[stored.ID] = &stored
		return nil
	})
}

// NewID derives a conversation id from a creation time.
func NewID(t time.Time) string {
	return fmt.Sprintf("chat-%d", t.UnixMilli())
}

// Create persists a new empty conversation with the placeholder title and
// makes it the active one, in one transaction. If another conversation
// already uses the id for now, the timestamp is advanced a millisecond at a
// time until the id is free.
func (s *Store) Create(now time.Time) (*models.Conversation, error) {
	var created *models.Conversation
	err := s.update(func(tx db.Tx, chats Chats) error {
		t := now
		id := NewID(t)
		for chats[id] != nil {
			t = t.Add(time.Millisecond)
			id = NewID(t)
		}
		created = &models.Conversation{
			ID:       id,
			Title:    models.PlaceholderTitle,
			Created:  models.MillisOf(now),
			LastUsed: models.MillisOf(now),
			Messages: []models.Message{},
		}
		chats[id] = created
		return tx.Put(KeyCurrentChatID, id)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	s.logger.Debug("created conversation", zap.String("id", created.ID))
	return created, nil
}

// Delete removes id and clears the active pointer when it referenced id.
// It reports whether anything was deleted.
func (s *Store) Delete(id string) (bool, error) {
	deleted := false
	err := s.update(func(tx db.Tx, chats Chats) error {
		if _, ok := chats[id]; !ok {
			return nil
		}
		delete(chats, id)
		deleted = true

		active, ok, err := tx.Get(KeyCurrentChatID)
		if err != nil {
			return err
		}
		if ok && active == id {
			return tx.Delete(KeyCurrentChatID)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete conversation: %w", err)
	}
	if !deleted {
		s.logger.Debug("delete of unknown conversation ignored", zap.String("id", id))
	}
	return deleted, nil
}

// Rename sets the title of id. Blank titles and unknown ids are ignored;
// the result reports whether the title changed.
func (s *Store) Rename(id, title string) (bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, nil
	}
	renamed := false
	err := s.Update(func(chats Chats) error {
		conv, ok := chats[id]
		if !ok {
			return nil
		}
		conv.Title = title
		renamed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to rename conversation: %w", err)
	}
	if !renamed {
		s.logger.Debug("rename of unknown conversation ignored", zap.String("id", id))
	}
	return renamed, nil
}

// List partitions every stored conversation into date buckets relative to now.
func (s *Store) List(now time.Time) (Buckets, error) {
	chats, err := s.Load()
	if err != nil {
		return Buckets{}, err
	}
	convs := make([]*models.Conversation, 0, len(chats))
	for _, conv := range chats {
		convs = append(convs, conv)
	}
	return Partition(convs, now), nil
}

func (s *Store) getString(key string) (string, error) {
	var value string
	err := s.kv.View(func(tx db.Tx) error {
		v, _, err := tx.Get(key)
		value = v
		return err
	})
	return value, err
}

// ActiveID returns the stored active conversation id, or "" when pending.
func (s *Store) ActiveID() (string, error) {
	return s.getString(KeyCurrentChatID)
}

// SetActiveID points the active pointer at id, which must exist.
func (s *Store) SetActiveID(id string) error {
	return s.kv.Update(func(tx db.Tx) error {
		chats, err := readChats(tx)
		if err != nil {
			return err
		}
		if _, ok := chats[id]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return tx.Put(KeyCurrentChatID, id)
	})
}

func (s *Store) ClearActiveID() error {
	return s.kv.Update(func(tx db.Tx) error {
		return tx.Delete(KeyCurrentChatID)
	})
}

// APIKey returns the bearer token stored under API_KEY.
func (s *Store) APIKey() (string, error) {
	return s.getString(KeyAPIKey)
}

func (s *Store) SetAPIKey(key string) error {
	return s.kv.Update(func(tx db.Tx) error {
		return tx.Put(KeyAPIKey, strings.TrimSpace(key))
	})
}
