package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-keybot"
)

// RESTClient is the part of a discordgo session the verifier calls
type RESTClient interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// Verifier implements keybot.IdentityVerifier over the Discord REST API,
// authenticated with the bot token of the session.
type Verifier struct {
	rest RESTClient
}

var _ keybot.IdentityVerifier = (*Verifier)(nil)

func NewVerifier(rest RESTClient) *Verifier {
	return &Verifier{rest: rest}
}

func (v *Verifier) Profile(ctx context.Context, accountID string) (*keybot.Profile, error) {
	user, err := v.rest.User(accountID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, platformFailure(err, "failed to fetch user", accountID)
	}
	if user == nil {
		return nil, goerrors.New("user response was empty", goerrors.CategoryInternal).
			WithTextCode(keybot.TextCodePlatformFailure)
	}
	return &keybot.Profile{ID: user.ID, Username: user.Username}, nil
}

func (v *Verifier) MemberRoles(ctx context.Context, guildID, accountID string) ([]string, error) {
	member, err := v.rest.GuildMember(guildID, accountID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return []string{}, nil
		}
		return nil, platformFailure(err, "failed to fetch guild member", accountID)
	}
	if member == nil || member.Roles == nil {
		return []string{}, nil
	}
	return member.Roles, nil
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}

func platformFailure(err error, message, accountID string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(keybot.TextCodePlatformFailure).
		WithMetadata(map[string]any{"account_id": accountID})
}
