package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-keybot"
)

// Editor is the part of a discordgo session that edits interaction responses
type Editor interface {
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

const (
	editAttempts = 3
	editBackoff  = 250 * time.Millisecond
)

// EditReply replaces the deferred response of interaction with reply. An
// edit can reach Discord before the deferral does when the deferral travels
// as an HTTP response, so unknown interaction errors are retried briefly.
func EditReply(ctx context.Context, editor Editor, interaction *discordgo.Interaction, reply keybot.Reply) error {
	var err error
retry:
	for attempt := 1; attempt <= editAttempts; attempt++ {
		_, err = editor.InteractionResponseEdit(interaction, EditFromReply(reply), discordgo.WithContext(ctx))
		if err == nil || !isNotFound(err) || attempt == editAttempts {
			break
		}

		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(editBackoff * time.Duration(attempt)):
		}
	}

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to edit interaction response").
			WithTextCode(keybot.TextCodePlatformFailure).
			WithMetadata(map[string]any{"interaction_id": interaction.ID})
	}
	return nil
}
