package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/goliatone/go-keybot"
)

// InvocationFromInteraction converts an application command interaction. It
// returns false for every other interaction type.
func InvocationFromInteraction(i *discordgo.Interaction) (keybot.Invocation, bool) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return keybot.Invocation{}, false
	}

	data, ok := i.Data.(discordgo.ApplicationCommandInteractionData)
	if !ok {
		return keybot.Invocation{}, false
	}

	inv := keybot.Invocation{
		Command: data.Name,
		Options: map[string]string{},
	}

	for _, opt := range data.Options {
		if opt == nil || opt.Type != discordgo.ApplicationCommandOptionString {
			continue
		}
		inv.Options[opt.Name] = opt.StringValue()
	}

	// guild interactions carry the user on the member, DMs on the interaction
	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user != nil {
		inv.UserID = user.ID
		inv.Username = user.Username
	}

	return inv, true
}

// ResponseFromReply builds the interaction response for a reply
func ResponseFromReply(reply keybot.Reply) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{
		Content: reply.Content,
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

// DeferredResponse acknowledges a command and shows a private loading state
// until the reply is edited in. Every reply of the bot is ephemeral, so the
// flag is set on the deferral.
func DeferredResponse() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}
}

// EditFromReply builds the edit that replaces a deferred response
func EditFromReply(reply keybot.Reply) *discordgo.WebhookEdit {
	content := reply.Content
	return &discordgo.WebhookEdit{Content: &content}
}
