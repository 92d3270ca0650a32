// Package bot wires the conversation agent to Discord: it filters inbound
// messages through the trigger predicate, serializes turns per channel,
// splits replies into transport-sized chunks and manages the source
// disclosure reveal toggle.
package bot

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/XenioxYT/discord-chatbot/internal/config"
	"github.com/XenioxYT/discord-chatbot/internal/disclose"
	"github.com/XenioxYT/discord-chatbot/internal/history"
	"github.com/XenioxYT/discord-chatbot/internal/logger"
)

const (
	sourcesTitle = "Sources"
	sourcesColor = 0xFFA500
)

const failureNotice = "Sorry, something went wrong while processing that. Please try again."

// Orchestrator runs one turn and returns the reply text.
type Orchestrator interface {
	Process(ctx context.Context, conversationID, author, content string) (string, error)
}

// Bot handles Discord events. selfID is the bot's own user id, used to ignore
// its own messages and reactions.
type Bot struct {
	session Session
	agent   Orchestrator
	store   *history.Store
	tracker *disclose.Tracker

	selfID     string
	trigger    func(content string) bool
	chunkSize  int
	tokenLimit int
	reveal     config.RevealConfig
}

// New creates a Bot. trigger decides whether a message engages the model at
// all; nil means every message does.
func New(session Session, agent Orchestrator, store *history.Store, tracker *disclose.Tracker, cfg *config.Config, selfID string, trigger func(string) bool) *Bot {
	if trigger == nil {
		trigger = func(string) bool { return true }
	}
	return &Bot{
		session:    session,
		agent:      agent,
		store:      store,
		tracker:    tracker,
		selfID:     selfID,
		trigger:    trigger,
		chunkSize:  cfg.Limits.ChunkSize,
		tokenLimit: cfg.Limits.TokenLimit,
		reveal:     cfg.Reveal,
	}
}

// TriggerWordPredicate returns the default trigger: a case-insensitive
// substring match on the configured word.
func TriggerWordPredicate(word string) func(string) bool {
	lower := strings.ToLower(word)
	return func(content string) bool {
		return strings.Contains(strings.ToLower(content), lower)
	}
}

// HandleMessage processes one inbound chat message. Turns for the same
// channel queue behind each other on the store's turn lock; other channels
// proceed concurrently.
func (b *Bot) HandleMessage(ctx context.Context, channelID, authorID, authorName, content string) {
	if authorID == b.selfID {
		return
	}

	b.store.LockTurn(channelID)
	defer b.store.UnlockTurn(channelID)

	// Every message enters the conversation history (budget permitting) so
	// the model sees the ambient channel chat; the trigger gates only
	// whether the model is engaged for this message. The agent records the
	// triggering message itself, in the same "author: content" shape.
	if !b.trigger(content) {
		formatted := strings.TrimSpace(fmt.Sprintf("%s: %s", authorName, content))
		if !b.store.AppendIfFits(channelID, history.Message{Role: history.RoleUser, Content: formatted}, b.tokenLimit) {
			logger.L.Warn("ambient message exceeds token budget, dropped", "conversation", channelID)
		}
		b.store.EnforceLimit(channelID, b.tokenLimit)
		return
	}

	reply, err := b.agent.Process(ctx, channelID, authorName, content)
	if err != nil {
		logger.L.Error("turn failed", "conversation", channelID, "error", err)
		if _, serr := b.session.SendMessage(channelID, failureNotice); serr != nil {
			logger.L.Error("failed to send failure notice", "conversation", channelID, "error", serr)
		}
		return
	}

	display, disclosure := disclose.Process(reply)

	var lastID string
	for _, chunk := range chunkText(display, b.chunkSize) {
		id, err := b.session.SendMessage(channelID, chunk)
		if err != nil {
			logger.L.Error("failed to send reply chunk", "conversation", channelID, "error", err)
			return
		}
		lastID = id
	}

	if disclosure == "" || lastID == "" {
		return
	}

	sources := strings.Count(disclosure, "\n")
	notice := fmt.Sprintf(
		"\U0001F446 I've found %d source(s) for the information provided. Click the %s reaction to view the sources, and click again to hide them.",
		sources, b.reveal.Emoji,
	)
	if _, err := b.session.SendMessage(channelID, notice); err != nil {
		logger.L.Error("failed to send sources notice", "conversation", channelID, "error", err)
	}

	b.tracker.Remember(lastID, disclosure)
	if b.reveal.SelfBaseline {
		if err := b.session.AddReaction(channelID, lastID, b.reveal.Emoji); err != nil {
			logger.L.Warn("failed to add baseline reaction", "message", lastID, "error", err)
		}
	}
}

// chunkText splits text into pieces of at most size raw bytes, in order.
// Splitting is by raw length, not word boundaries, matching the transport's
// limit semantics; cuts back up to the nearest rune boundary so no chunk
// carries a partial UTF-8 sequence.
func chunkText(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		return []string{text}
	}
	chunks := make([]string, 0, (len(text)+size-1)/size)
	for start := 0; start < len(text); {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			// A single rune wider than size; split it rather than loop.
			end = start + size
		}
		chunks = append(chunks, text[start:end])
		start = end
	}
	return chunks
}

// Register attaches the Discord event handlers to a discordgo session.
func (b *Bot) Register(s *discordgo.Session) {
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.HandleMessage(context.Background(), m.ChannelID, m.Author.ID, m.Author.Username, m.Content)
	})
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		b.HandleReactionAdd(r.ChannelID, r.MessageID, r.Emoji.Name, r.UserID)
	})
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
		b.HandleReactionRemove(r.ChannelID, r.MessageID, r.Emoji.Name, r.UserID)
	})
}
