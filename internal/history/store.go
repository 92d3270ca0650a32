// Package history owns the bounded per-conversation message histories. Each
// conversation is seeded with a pinned system message that is never evicted;
// everything else is subject to the token budget, oldest evicted first.
package history

import (
	"sync"

	"github.com/XenioxYT/discord-chatbot/internal/logger"
	"github.com/XenioxYT/discord-chatbot/internal/token"
)

// Store maps conversation ids to their histories. Histories for different
// conversations never block each other; a single conversation's history is
// guarded by its own mutex, and whole turns are serialized through LockTurn.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation

	systemPrompt string
	archive      *Archive
}

type conversation struct {
	mu       sync.Mutex // guards messages
	turnMu   sync.Mutex // serializes whole turns, see LockTurn
	messages []Message
}

// NewStore creates a Store whose conversations are seeded with systemPrompt.
// archive may be nil; when set, every appended message is also recorded there.
func NewStore(systemPrompt string, archive *Archive) *Store {
	return &Store{
		conversations: make(map[string]*conversation),
		systemPrompt:  systemPrompt,
		archive:       archive,
	}
}

// getOrCreate returns the conversation for id, creating it with the pinned
// system message on first use.
func (s *Store) getOrCreate(id string) *conversation {
	s.mu.RLock()
	c, ok := s.conversations[id]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.conversations[id]; ok {
		return c
	}
	c = &conversation{messages: []Message{{Role: RoleSystem, Content: s.systemPrompt}}}
	s.conversations[id] = c
	return c
}

// LockTurn acquires the per-conversation turn lock. A second message arriving
// for the same conversation while a turn is in flight queues behind it here;
// turns for other conversations proceed concurrently.
func (s *Store) LockTurn(id string) {
	s.getOrCreate(id).turnMu.Lock()
}

// UnlockTurn releases the per-conversation turn lock.
func (s *Store) UnlockTurn(id string) {
	s.getOrCreate(id).turnMu.Unlock()
}

// AppendIfFits appends msg only when the conversation's estimated token count
// plus the message's own cost stays within limit. Returns false (and leaves
// the history untouched) when it would not fit.
func (s *Store) AppendIfFits(id string, msg Message, limit int) bool {
	c := s.getOrCreate(id)
	c.mu.Lock()
	defer c.mu.Unlock()

	if tokensOf(c.messages)+token.Count(msg.Content) > limit {
		return false
	}
	c.messages = append(c.messages, msg)
	s.record(id, msg)
	return true
}

// Append appends msg unconditionally. Used for tool results, which are always
// admitted; the caller runs EnforceLimit afterwards to restore the budget.
func (s *Store) Append(id string, msg Message) {
	c := s.getOrCreate(id)
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	s.record(id, msg)
}

// EnforceLimit evicts the oldest non-system messages until the conversation
// fits the budget. The pinned system message is never evicted; if it alone
// still exceeds the limit, no further reduction is possible and the history
// is left as is.
func (s *Store) EnforceLimit(id string, limit int) {
	c := s.getOrCreate(id)
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.messages) > 1 && tokensOf(c.messages) > limit {
		evicted := c.messages[1]
		c.messages = append(c.messages[:1], c.messages[2:]...)
		logger.L.Debug("evicted message over token budget",
			"conversation", id, "role", evicted.Role, "tokens", token.Count(evicted.Content))
	}
}

// Messages returns a snapshot copy of the conversation's history.
func (s *Store) Messages(id string) []Message {
	c := s.getOrCreate(id)
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the current number of messages, including the system message.
func (s *Store) Len(id string) int {
	c := s.getOrCreate(id)
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Restore replaces the conversation's history with a snapshot previously
// taken via Messages. The orchestrator snapshots at turn start and restores
// on abort, which undoes the turn's appends and any evictions those appends
// forced, so a failed turn leaves no trace. A truncate-to-length rollback
// would miss the eviction case: an oversized tool result can shrink the
// history below its starting length before the turn fails.
func (s *Store) Restore(id string, snapshot []Message) {
	c := s.getOrCreate(id)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(snapshot) == 0 {
		c.messages = []Message{{Role: RoleSystem, Content: s.systemPrompt}}
		return
	}
	c.messages = make([]Message, len(snapshot))
	copy(c.messages, snapshot)
}

// Tokens returns the estimated token cost of the conversation.
func (s *Store) Tokens(id string) int {
	c := s.getOrCreate(id)
	c.mu.Lock()
	defer c.mu.Unlock()
	return tokensOf(c.messages)
}

func (s *Store) record(id string, msg Message) {
	if s.archive != nil {
		s.archive.Save(id, msg)
	}
}

// tokensOf sums the per-message content estimates. Summing independent
// messages is a conservative approximation of the true prompt cost.
func tokensOf(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += token.Count(m.Content)
	}
	return total
}
