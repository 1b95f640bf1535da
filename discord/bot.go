package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-keybot"
)

// Session is the subset of *discordgo.Session the bot depends on
type Session interface {
	CommandRegistrar
	Editor
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// Intents the gateway connection needs: guild events and member lookups
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

// NewSession creates a discordgo session authenticated with a bot token
func NewSession(botToken string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create discord session")
	}
	s.Identify.Intents = Intents
	return s, nil
}

// Bot receives interactions over the gateway and answers them through the
// router. discordgo runs each handler call on its own goroutine.
type Bot struct {
	session       Session
	router        keybot.Dispatcher
	applicationID string
	guildID       string
	logger        keybot.Logger

	mu     sync.Mutex
	ctx    context.Context
	remove func()
}

func NewBot(session Session, router keybot.Dispatcher, applicationID, guildID string) *Bot {
	return &Bot{
		session:       session,
		router:        router,
		applicationID: applicationID,
		guildID:       guildID,
		logger:        keybot.NewSlogLogger(nil),
		ctx:           context.Background(),
	}
}

func (b *Bot) WithLogger(logger keybot.Logger) *Bot {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Start installs the interaction handler, opens the gateway and registers
// the guild commands. ctx is the parent of every command handled.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.remove = b.session.AddHandler(b.onInteractionCreate)
	b.mu.Unlock()

	if err := b.session.Open(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open discord gateway")
	}

	registered, err := RegisterCommands(ctx, b.session, b.applicationID, b.guildID)
	if err != nil {
		return err
	}

	b.logger.Info("registered guild commands", "guild_id", b.guildID, "count", len(registered))
	return nil
}

// Stop removes the handler and closes the gateway connection
func (b *Bot) Stop() error {
	b.mu.Lock()
	if b.remove != nil {
		b.remove()
		b.remove = nil
	}
	b.mu.Unlock()
	return b.session.Close()
}

func (b *Bot) onInteractionCreate(_ *discordgo.Session, evt *discordgo.InteractionCreate) {
	if evt == nil {
		return
	}
	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()

	if err := b.HandleInteraction(ctx, evt.Interaction); err != nil {
		b.logger.Error("failed to answer interaction", "interaction_id", evt.ID, "error", err)
	}
}

// HandleInteraction acknowledges a handled command right away, since Discord
// drops interactions not answered within three seconds, then dispatches it
// and edits the reply into the deferred response.
func (b *Bot) HandleInteraction(ctx context.Context, interaction *discordgo.Interaction) error {
	inv, ok := InvocationFromInteraction(interaction)
	if !ok || !b.router.Handles(inv.Command) {
		return nil
	}

	if err := b.session.InteractionRespond(interaction, DeferredResponse(), discordgo.WithContext(ctx)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to acknowledge interaction").
			WithTextCode(keybot.TextCodePlatformFailure).
			WithMetadata(map[string]any{"command": inv.Command, "user_id": inv.UserID})
	}

	reply, ok := b.router.Dispatch(ctx, inv)
	if !ok {
		reply = keybot.Reply{Content: keybot.MessageGenericFailure, Ephemeral: true}
	}

	// the key may already be consumed, so the edit outlives shutdown
	return EditReply(context.WithoutCancel(ctx), b.session, interaction, reply)
}
