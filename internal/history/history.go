// Package history keeps the recent chat turns of each channel so follow-up
// prompts carry context.
package history

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/riverfjs/chatstream-go/internal/ollama"
)

const (
	// DefaultLimit is the number of messages kept per channel.
	DefaultLimit = 50
	// DefaultMaxChannels bounds how many channels are remembered; the least
	// recently used channel is forgotten first.
	DefaultMaxChannels = 1024
)

// Store is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	cache *lru.Cache[string, []ollama.Message]
	limit int
}

// New creates a store. Non-positive arguments select the defaults.
func New(maxChannels, limit int) (*Store, error) {
	if maxChannels <= 0 {
		maxChannels = DefaultMaxChannels
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	cache, err := lru.New[string, []ollama.Message](maxChannels)
	if err != nil {
		return nil, fmt.Errorf("create history cache: %w", err)
	}
	return &Store{cache: cache, limit: limit}, nil
}

// Limit returns the per-channel message cap.
func (s *Store) Limit() int {
	return s.limit
}

// Get returns a copy of the channel's history, oldest first.
func (s *Store) Get(channelID string) []ollama.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.cache.Get(channelID)
	if !ok {
		return nil
	}
	return append([]ollama.Message(nil), msgs...)
}

// Append adds messages and keeps only the newest Limit of them.
func (s *Store) Append(channelID string, msgs ...ollama.Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.cache.Peek(channelID)
	next := make([]ollama.Message, 0, len(current)+len(msgs))
	next = append(next, current...)
	next = append(next, msgs...)
	if len(next) > s.limit {
		next = next[len(next)-s.limit:]
	}
	s.cache.Add(channelID, next)
}

// Set replaces the channel's history; nil or empty forgets the channel.
func (s *Store) Set(channelID string, msgs []ollama.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(msgs) == 0 {
		s.cache.Remove(channelID)
		return
	}
	if len(msgs) > s.limit {
		msgs = msgs[len(msgs)-s.limit:]
	}
	s.cache.Add(channelID, append([]ollama.Message(nil), msgs...))
}

// Len returns the number of channels with history.
func (s *Store) Len() int {
	return s.cache.Len()
}
