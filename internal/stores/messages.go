package stores

import (
	"context"
	"fmt"
	"strings"

	"github.com/socialhub/client/internal/cache"
	"github.com/socialhub/client/internal/collection"
	"github.com/socialhub/client/internal/models"
	"github.com/socialhub/client/internal/transport"
)

// MessageStore serves direct-message threads and their messages.
type MessageStore struct {
	base
	threads  *cache.Cache[[]models.Thread]
	messages *cache.Cache[[]models.Message]
}

const threadsSub = "all"

func newMessageStore(api API, s settings) *MessageStore {
	return &MessageStore{
		base:     newBase(api, s),
		threads:  newCache[[]models.Thread](s, cache.Threads),
		messages: newCache[[]models.Message](s, cache.Messages),
	}
}

// Threads returns the user's conversations.
func (m *MessageStore) Threads(ctx context.Context, force bool) ([]models.Thread, error) {
	return m.threads.Read(ctx, threadsSub, force, func(ctx context.Context) ([]models.Thread, error) {
		var out []models.Thread
		if err := m.api.Get(ctx, "/messages/threads/", nil, &out); err != nil {
			return nil, fmt.Errorf("fetch threads: %w", err)
		}
		return out, nil
	})
}

// Messages returns the messages of a thread. They are kept until a send or
// a forced read replaces them.
func (m *MessageStore) Messages(ctx context.Context, threadID int64, force bool) ([]models.Message, error) {
	done := m.loading.begin(cache.Sub(threadID))
	defer done()

	return m.messages.Read(ctx, cache.Sub(threadID), force, func(ctx context.Context) ([]models.Message, error) {
		var out []models.Message
		if err := m.api.Get(ctx, idPath("/messages/threads/", threadID, "messages/"), nil, &out); err != nil {
			return nil, fmt.Errorf("fetch messages of thread %d: %w", threadID, err)
		}
		return out, nil
	})
}

// Send posts a message and refetches the thread.
func (m *MessageStore) Send(ctx context.Context, threadID int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: message is empty", transport.ErrValidation)
	}
	if err := m.api.Post(ctx, idPath("/messages/threads/", threadID, "send/"), map[string]string{"message": text}, nil); err != nil {
		return fmt.Errorf("send message to thread %d: %w", threadID, err)
	}
	m.threads.Invalidate(threadsSub)
	_, err := m.Messages(ctx, threadID, true)
	return err
}

// StartGroupThread opens a conversation with usernames and refetches the
// thread list.
func (m *MessageStore) StartGroupThread(ctx context.Context, usernames []string) (models.Thread, error) {
	if len(usernames) == 0 {
		return models.Thread{}, fmt.Errorf("%w: at least one participant is required", transport.ErrValidation)
	}

	var thread models.Thread
	if err := m.api.Post(ctx, "/messages/threads/start-private/", map[string][]string{"usernames": usernames}, &thread); err != nil {
		return models.Thread{}, fmt.Errorf("start thread: %w", err)
	}
	if _, err := m.Threads(ctx, true); err != nil {
		return thread, err
	}
	return thread, nil
}

// Pinned returns the pinned messages of a thread, reusing loaded messages
// when present. Failures are logged and an empty list is returned.
func (m *MessageStore) Pinned(ctx context.Context, threadID int64) ([]models.Message, error) {
	msgs, ok := m.messages.Peek(cache.Sub(threadID))
	if !ok {
		var err error
		msgs, err = m.messages.ReadOrStale(ctx, cache.Sub(threadID), false, func(ctx context.Context) ([]models.Message, error) {
			var out []models.Message
			if err := m.api.Get(ctx, idPath("/messages/threads/", threadID, "messages/"), nil, &out); err != nil {
				return nil, fmt.Errorf("fetch messages of thread %d: %w", threadID, err)
			}
			return out, nil
		})
		if err := m.degrade(ctx, "pinned messages", err); err != nil {
			return nil, err
		}
	}
	return collection.Filter(msgs, func(msg models.Message) bool { return msg.Pinned }), nil
}

// TogglePin flips the pin of a message once the server confirms it.
func (m *MessageStore) TogglePin(ctx context.Context, threadID, messageID int64) error {
	if err := m.api.Post(ctx, idPath("/messages/messages/", messageID, "pin/"), nil, nil); err != nil {
		return fmt.Errorf("toggle pin of message %d: %w", messageID, err)
	}
	m.messages.Mutate(cache.Sub(threadID), func(items []models.Message) []models.Message {
		return collection.Update(items, messageID, func(msg models.Message) models.Message {
			msg.Pinned = !msg.Pinned
			return msg
		})
	})
	return nil
}

// Loading reports whether the messages of a thread are being fetched.
func (m *MessageStore) Loading(threadID int64) bool {
	return m.loading.active(cache.Sub(threadID))
}

func (m *MessageStore) reset() {
	m.threads.Reset()
	m.messages.Reset()
}
