package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/XenioxYT/discord-chatbot/internal/config"
	"github.com/XenioxYT/discord-chatbot/internal/disclose"
	"github.com/XenioxYT/discord-chatbot/internal/history"
)

type sentMessage struct {
	channelID string
	content   string
	id        string
}

type fakeSession struct {
	sent      []sentMessage
	reactions []string // message ids the bot reacted to
	attached  map[string]string
	detached  []string
	counts    map[string]int
	nextID    int
}

func newFakeSession() *fakeSession {
	return &fakeSession{attached: map[string]string{}, counts: map[string]int{}}
}

func (f *fakeSession) SendMessage(channelID, content string) (string, error) {
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.sent = append(f.sent, sentMessage{channelID: channelID, content: content, id: id})
	return id, nil
}

func (f *fakeSession) AddReaction(_, messageID, _ string) error {
	f.reactions = append(f.reactions, messageID)
	return nil
}

func (f *fakeSession) ReactionCount(_, messageID, _ string) (int, error) {
	return f.counts[messageID], nil
}

func (f *fakeSession) AttachPanel(_, messageID, _, body string, _ int) error {
	f.attached[messageID] = body
	return nil
}

func (f *fakeSession) DetachPanel(_, messageID string) error {
	f.detached = append(f.detached, messageID)
	return nil
}

type fakeAgent struct {
	reply string
	err   error
	calls int
}

func (f *fakeAgent) Process(_ context.Context, _, _, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func testBotConfig() *config.Config {
	return &config.Config{
		Discord: config.DiscordConfig{TriggerWord: "byte", BotName: "Byte"},
		Limits:  config.LimitsConfig{ChunkSize: 2000, TokenLimit: 16000},
		Reveal:  config.RevealConfig{Emoji: "\U0001F4DA", SelfBaseline: true, Threshold: 1},
	}
}

func newTestBot(session Session, agent Orchestrator, cfg *config.Config) (*Bot, *disclose.Tracker) {
	store := history.NewStore("system", nil)
	tracker := disclose.NewTracker()
	b := New(session, agent, store, tracker, cfg, "self-id", TriggerWordPredicate(cfg.Discord.TriggerWord))
	return b, tracker
}

func TestHandleMessage_PlainReply(t *testing.T) {
	session := newFakeSession()
	agent := &fakeAgent{reply: "2+2 is 4."}
	b, tracker := newTestBot(session, agent, testBotConfig())

	b.HandleMessage(context.Background(), "chan", "user-1", "alice", "byte, what's 2+2 and don't use tools")

	require.Len(t, session.sent, 1)
	require.Equal(t, "2+2 is 4.", session.sent[0].content)
	require.Empty(t, session.reactions)
	_, tracked := tracker.Lookup(session.sent[0].id)
	require.False(t, tracked)
}

func TestHandleMessage_IgnoresSelfAndUntriggered(t *testing.T) {
	session := newFakeSession()
	agent := &fakeAgent{reply: "hello"}
	b, _ := newTestBot(session, agent, testBotConfig())

	b.HandleMessage(context.Background(), "chan", "self-id", "Byte", "byte talking to myself")
	b.HandleMessage(context.Background(), "chan", "user-1", "alice", "no trigger word here")

	require.Zero(t, agent.calls)
	require.Empty(t, session.sent)
}

func TestHandleMessage_NonTriggerMessagesEnterHistory(t *testing.T) {
	session := newFakeSession()
	agent := &fakeAgent{reply: "pizza, apparently"}
	cfg := testBotConfig()
	store := history.NewStore("system", nil)
	b := New(session, agent, store, disclose.NewTracker(), cfg, "self-id", TriggerWordPredicate(cfg.Discord.TriggerWord))

	// Ambient chat is recorded without engaging the model.
	b.HandleMessage(context.Background(), "chan", "user-1", "alice", "I love pizza")

	require.Zero(t, agent.calls)
	require.Empty(t, session.sent)
	msgs := store.Messages("chan")
	require.Len(t, msgs, 2)
	require.Equal(t, history.RoleUser, msgs[1].Role)
	require.Equal(t, "alice: I love pizza", msgs[1].Content)

	// A later trigger message engages the model with that context in place.
	b.HandleMessage(context.Background(), "chan", "user-2", "bob", "byte what does alice like?")

	require.Equal(t, 1, agent.calls)
	require.Len(t, session.sent, 1)
}

func TestHandleMessage_ChunksLongReply(t *testing.T) {
	session := newFakeSession()
	agent := &fakeAgent{reply: strings.Repeat("a", 4500)}
	b, _ := newTestBot(session, agent, testBotConfig())

	b.HandleMessage(context.Background(), "chan", "user-1", "alice", "byte say something long")

	require.Len(t, session.sent, 3)
	require.Len(t, session.sent[0].content, 2000)
	require.Len(t, session.sent[1].content, 2000)
	require.Len(t, session.sent[2].content, 500)
}

func TestHandleMessage_SourcedReply(t *testing.T) {
	session := newFakeSession()
	agent := &fakeAgent{reply: "See [BBC Weather](http://example.com) for details."}
	b, tracker := newTestBot(session, agent, testBotConfig())

	b.HandleMessage(context.Background(), "chan", "user-1", "alice", "byte weather?")

	// Reply chunk plus the sources notice.
	require.Len(t, session.sent, 2)
	require.Equal(t, "See BBC Weather[1] for details.", session.sent[0].content)
	require.Contains(t, session.sent[1].content, "1 source(s)")

	// The rendered reply (not the notice) is tracked and gets the baseline
	// reaction.
	replyID := session.sent[0].id
	disclosure, tracked := tracker.Lookup(replyID)
	require.True(t, tracked)
	require.Equal(t, "Source 1: http://example.com\n", disclosure)
	require.Equal(t, []string{replyID}, session.reactions)
}

func TestHandleMessage_AgentFailureSendsNotice(t *testing.T) {
	session := newFakeSession()
	agent := &fakeAgent{err: errors.New("turn exploded")}
	b, _ := newTestBot(session, agent, testBotConfig())

	b.HandleMessage(context.Background(), "chan", "user-1", "alice", "byte break please")

	require.Len(t, session.sent, 1)
	require.Equal(t, failureNotice, session.sent[0].content)
}

func TestReactionAdd_ShowsPanelAboveThreshold(t *testing.T) {
	session := newFakeSession()
	b, tracker := newTestBot(session, &fakeAgent{}, testBotConfig())
	tracker.Remember("msg-1", "Source 1: http://example.com\n")

	// Baseline (bot) + one human.
	session.counts["msg-1"] = 2
	b.HandleReactionAdd("chan", "msg-1", "\U0001F4DA", "user-1")

	require.Equal(t, "Source 1: http://example.com\n", session.attached["msg-1"])
}

func TestReactionAdd_AtThresholdDoesNothing(t *testing.T) {
	session := newFakeSession()
	b, tracker := newTestBot(session, &fakeAgent{}, testBotConfig())
	tracker.Remember("msg-1", "Source 1: http://example.com\n")

	session.counts["msg-1"] = 1
	b.HandleReactionAdd("chan", "msg-1", "\U0001F4DA", "user-1")

	require.Empty(t, session.attached)
}

func TestReactionRemove_HidesPanelAtOrBelowThreshold(t *testing.T) {
	session := newFakeSession()
	b, tracker := newTestBot(session, &fakeAgent{}, testBotConfig())
	tracker.Remember("msg-1", "Source 1: http://example.com\n")

	session.counts["msg-1"] = 1
	b.HandleReactionRemove("chan", "msg-1", "\U0001F4DA", "user-1")

	require.Equal(t, []string{"msg-1"}, session.detached)
}

func TestReactionRemove_AboveThresholdKeepsPanel(t *testing.T) {
	session := newFakeSession()
	b, tracker := newTestBot(session, &fakeAgent{}, testBotConfig())
	tracker.Remember("msg-1", "Source 1: http://example.com\n")

	session.counts["msg-1"] = 3
	b.HandleReactionRemove("chan", "msg-1", "\U0001F4DA", "user-1")

	require.Empty(t, session.detached)
}

func TestReaction_IgnoredCases(t *testing.T) {
	session := newFakeSession()
	b, tracker := newTestBot(session, &fakeAgent{}, testBotConfig())
	tracker.Remember("msg-1", "Source 1: http://example.com\n")
	session.counts["msg-1"] = 5

	// Bot's own reaction.
	b.HandleReactionAdd("chan", "msg-1", "\U0001F4DA", "self-id")
	// Wrong emoji.
	b.HandleReactionAdd("chan", "msg-1", "\U0001F44D", "user-1")
	// Untracked message.
	b.HandleReactionAdd("chan", "msg-2", "\U0001F4DA", "user-1")

	require.Empty(t, session.attached)
}

func TestChunkText(t *testing.T) {
	require.Equal(t, []string{""}, chunkText("", 2000))
	require.Equal(t, []string{"short"}, chunkText("short", 2000))
	require.Equal(t, []string{"ab", "cd", "e"}, chunkText("abcde", 2))
}

func TestChunkText_NeverSplitsRunes(t *testing.T) {
	text := strings.Repeat("héllo wörld \U0001F4DA ", 40)
	chunks := chunkText(text, 25)

	require.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		require.True(t, utf8.ValidString(c))
		require.LessOrEqual(t, len(c), 25)
	}
}
