package bot

import (
	"github.com/XenioxYT/discord-chatbot/internal/logger"
)

// HandleReactionAdd shows the sources panel when the reveal reaction's
// current count rises above the configured threshold. Events on untracked
// messages, other emoji, or from the bot itself are ignored. Decisions are
// made from the count the transport reports at event time, never from a
// locally accumulated counter, so the toggle is idempotent per event.
func (b *Bot) HandleReactionAdd(channelID, messageID, emoji, userID string) {
	disclosure, ok := b.eligible(messageID, emoji, userID)
	if !ok {
		return
	}

	count, err := b.session.ReactionCount(channelID, messageID, emoji)
	if err != nil {
		logger.L.Error("failed to read reaction count", "message", messageID, "error", err)
		return
	}
	if count > b.reveal.Threshold {
		if err := b.session.AttachPanel(channelID, messageID, sourcesTitle, disclosure, sourcesColor); err != nil {
			logger.L.Error("failed to attach sources panel", "message", messageID, "error", err)
		}
	}
}

// HandleReactionRemove hides the sources panel when the count falls to the
// threshold or below.
func (b *Bot) HandleReactionRemove(channelID, messageID, emoji, userID string) {
	if _, ok := b.eligible(messageID, emoji, userID); !ok {
		return
	}

	count, err := b.session.ReactionCount(channelID, messageID, emoji)
	if err != nil {
		logger.L.Error("failed to read reaction count", "message", messageID, "error", err)
		return
	}
	if count <= b.reveal.Threshold {
		if err := b.session.DetachPanel(channelID, messageID); err != nil {
			logger.L.Error("failed to detach sources panel", "message", messageID, "error", err)
		}
	}
}

// eligible filters reaction events down to ones that can toggle a panel.
func (b *Bot) eligible(messageID, emoji, userID string) (string, bool) {
	if userID == b.selfID {
		return "", false
	}
	if emoji != b.reveal.Emoji {
		return "", false
	}
	return b.tracker.Lookup(messageID)
}
