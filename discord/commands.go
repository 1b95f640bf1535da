package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-keybot"
)

// CommandRegistrar is the part of a discordgo session that manages commands
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// ApplicationCommands returns the slash command definitions of the bot
func ApplicationCommands() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)

	return []*discordgo.ApplicationCommand{
		{
			Name:        keybot.CommandRegister,
			Description: "Register using your key and server role",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        keybot.OptionKey,
					Description: "Your registration key",
					Required:    true,
				},
			},
		},
		{
			Name:                     keybot.CommandCreateKey,
			Description:              "Generate a new registration key (admin only)",
			DefaultMemberPermissions: &adminOnly,
		},
	}
}

// RegisterCommands replaces the guild commands of the application with
// ApplicationCommands.
func RegisterCommands(ctx context.Context, registrar CommandRegistrar, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	registered, err := registrar.ApplicationCommandBulkOverwrite(appID, guildID, ApplicationCommands(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register guild commands").
			WithTextCode(keybot.TextCodePlatformFailure).
			WithMetadata(map[string]any{"application_id": appID, "guild_id": guildID})
	}
	return registered, nil
}
