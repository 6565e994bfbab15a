package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// sendSplitMessage sends each blank-line separated paragraph as its own
// message, the way people text. Only the first part pings on a reply.
func (h *Handler) sendSplitMessage(s Session, channelID, content string, reference *discordgo.MessageReference) {
	parts := strings.Split(content, "\n\n")

	isFirstPart := true
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var err error
		switch {
		case reference == nil:
			_, err = s.ChannelMessageSend(channelID, part)
		case isFirstPart:
			_, err = s.ChannelMessageSendReply(channelID, part, reference)
		default:
			_, err = s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
				Content:   part,
				Reference: reference,
				AllowedMentions: &discordgo.MessageAllowedMentions{
					RepliedUser: false,
				},
			})
		}
		isFirstPart = false

		if err != nil {
			h.log.Warn("Error sending message part", "channel", channelID, "error", err)
		}
	}
}

// getUserFromInteraction extracts the user ID and name from an interaction
// It handles both guild (Member) and DM (User) contexts
func getUserFromInteraction(i *discordgo.InteractionCreate) (string, string, error) {
	if i.Member != nil && i.Member.User != nil {
		userName := i.Member.User.Username
		if i.Member.User.GlobalName != "" {
			userName = i.Member.User.GlobalName
		}
		return i.Member.User.ID, userName, nil
	}

	if i.User != nil {
		userName := i.User.Username
		if i.User.GlobalName != "" {
			userName = i.User.GlobalName
		}
		return i.User.ID, userName, nil
	}

	return "", "", fmt.Errorf("could not determine user from interaction")
}

func italic(format string, args ...any) string {
	return "_" + fmt.Sprintf(format, args...) + "_"
}
