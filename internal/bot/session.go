package bot

import (
	"github.com/bwmarrin/discordgo"
)

// Session is the narrow slice of the Discord API the bot consumes. Keeping it
// this small makes the handlers testable with a fake.
type Session interface {
	// SendMessage sends text to a channel and returns the rendered message id.
	SendMessage(channelID, content string) (string, error)
	// AddReaction adds the bot's own reaction to a message.
	AddReaction(channelID, messageID, emoji string) error
	// ReactionCount reports the current number of reactions with emoji on a
	// message, read from the transport at call time.
	ReactionCount(channelID, messageID, emoji string) (int, error)
	// AttachPanel renders a highlighted panel on an existing message.
	AttachPanel(channelID, messageID, title, body string, color int) error
	// DetachPanel removes any panel from a message.
	DetachPanel(channelID, messageID string) error
}

// discordSession adapts *discordgo.Session to Session.
type discordSession struct {
	s *discordgo.Session
}

// NewSession wraps a discordgo session.
func NewSession(s *discordgo.Session) Session {
	return &discordSession{s: s}
}

func (d *discordSession) SendMessage(channelID, content string) (string, error) {
	msg, err := d.s.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (d *discordSession) AddReaction(channelID, messageID, emoji string) error {
	return d.s.MessageReactionAdd(channelID, messageID, emoji)
}

func (d *discordSession) ReactionCount(channelID, messageID, emoji string) (int, error) {
	msg, err := d.s.ChannelMessage(channelID, messageID)
	if err != nil {
		return 0, err
	}
	for _, r := range msg.Reactions {
		if r.Emoji != nil && r.Emoji.Name == emoji {
			return r.Count, nil
		}
	}
	return 0, nil
}

func (d *discordSession) AttachPanel(channelID, messageID, title, body string, color int) error {
	embeds := []*discordgo.MessageEmbed{{Title: title, Description: body, Color: color}}
	_, err := d.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel: channelID,
		ID:      messageID,
		Embeds:  &embeds,
	})
	return err
}

func (d *discordSession) DetachPanel(channelID, messageID string) error {
	embeds := []*discordgo.MessageEmbed{}
	_, err := d.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel: channelID,
		ID:      messageID,
		Embeds:  &embeds,
	})
	return err
}
