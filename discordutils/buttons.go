package discordutils

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrButtonTimeout is returned when nobody pressed a button in time.
var ErrButtonTimeout = errors.New("no button pressed in time")

// ButtonOption is one choice offered by WaitForButton. Ref is returned
// when the button is pressed.
type ButtonOption struct {
	Ref   string
	Label string
	Style discordgo.ButtonStyle
}

// WaitForButton sends a message with one button per option and blocks
// until the given author presses one, returning that option's Ref.
// Presses by anyone else get an ephemeral rejection. The wait is a
// channel receive bounded by the timeout, and the buttons are removed
// from the message afterwards either way.
func WaitForButton(
	session *discordgo.Session,
	channelID string,
	authorID string,
	content string,
	options []ButtonOption,
	timeout time.Duration,
) (string, error) {
	if len(options) == 0 {
		return "", errors.New("no button options given")
	}

	buttons := make([]discordgo.MessageComponent, len(options))
	refs := make(map[string]string, len(options))
	for i, option := range options {
		customID := fmt.Sprintf("btnpred-%d", i)
		refs[customID] = option.Ref
		buttons[i] = discordgo.Button{
			Label:    option.Label,
			Style:    option.Style,
			CustomID: customID,
		}
	}

	message, err := session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: buttons},
		},
	})
	if err != nil {
		return "", err
	}

	pressed := make(chan string, 1)
	remove := session.AddHandler(func(
		s *discordgo.Session,
		i *discordgo.InteractionCreate,
	) {
		if i.Type != discordgo.InteractionMessageComponent {
			return
		}
		if i.Message == nil || i.Message.ID != message.ID {
			return
		}

		if InteractionUser(i.Interaction).ID != authorID {
			s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "You don't have permission to do this.",
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			})
			return
		}

		s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		})

		select {
		case pressed <- i.MessageComponentData().CustomID:
		default:
		}
	})
	defer remove()
	defer clearButtons(session, channelID, message.ID, content)

	select {
	case customID := <-pressed:
		return refs[customID], nil
	case <-time.After(timeout):
		return "", ErrButtonTimeout
	}
}

// WaitForYesNo is WaitForButton with pre-defined yes and no buttons,
// returning true for yes.
func WaitForYesNo(
	session *discordgo.Session,
	channelID string,
	authorID string,
	content string,
	timeout time.Duration,
) (bool, error) {
	ref, err := WaitForButton(
		session,
		channelID,
		authorID,
		content,
		[]ButtonOption{
			{Ref: "yes", Label: "Yes", Style: discordgo.PrimaryButton},
			{Ref: "no", Label: "No", Style: discordgo.PrimaryButton},
		},
		timeout,
	)
	if err != nil {
		return false, err
	}
	return ref == "yes", nil
}

func clearButtons(
	session *discordgo.Session,
	channelID string,
	messageID string,
	content string,
) {
	session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Content:    &content,
		Components: []discordgo.MessageComponent{},
	})
}
