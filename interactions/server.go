// Package interactions serves Discord interactions over HTTP, the alternative
// to the gateway when an Interactions Endpoint URL is configured for the app.
package interactions

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-keybot"
	"github.com/goliatone/go-keybot/discord"
)

const (
	RouteInteractions = "/interactions"
	RouteHealth       = "/healthz"
)

// DefaultAckWindow is how long a command may run before the interaction is
// deferred. Discord closes the response window after three seconds.
const DefaultAckWindow = 2 * time.Second

type Server struct {
	app       *fiber.App
	router    keybot.Dispatcher
	editor    discord.Editor
	publicKey ed25519.PublicKey
	logger    keybot.Logger
	ackWindow time.Duration

	// deferred commands still running after their response was sent
	pending sync.WaitGroup
}

type Option func(*Server)

func WithLogger(logger keybot.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAckWindow sets how long a command may run before it is deferred
func WithAckWindow(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.ackWindow = d
		}
	}
}

// NewServer answers interactions with router. Commands that outlive the ack
// window have their reply edited in through editor.
func NewServer(router keybot.Dispatcher, editor discord.Editor, publicKey ed25519.PublicKey, opts ...Option) *Server {
	s := &Server{
		router:    router,
		editor:    editor,
		publicKey: publicKey,
		logger:    keybot.NewSlogLogger(nil),
		ackWindow: DefaultAckWindow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "keybot",
		DisableStartupMessage: true,
	})
	s.app.Get(RouteHealth, s.health)
	s.app.Post(RouteInteractions, s.verify, s.interaction)

	return s
}

// App exposes the fiber app, mostly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve accepts connections on ln until Shutdown. Binding is left to the
// caller so address errors surface before the bot reports ready.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("listening for interactions", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown stops accepting interactions and waits for deferred commands to
// deliver their replies, or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) verify(c *fiber.Ctx) error {
	if !VerifySignature(s.publicKey, c.Get(HeaderSignature), c.Get(HeaderTimestamp), c.Body()) {
		s.logger.Warn("rejected interaction with invalid signature", "ip", c.IP())
		return c.Status(fiber.StatusUnauthorized).SendString("invalid request signature")
	}
	return c.Next()
}

func (s *Server) interaction(c *fiber.Ctx) error {
	var interaction discordgo.Interaction
	if err := json.Unmarshal(c.Body(), &interaction); err != nil {
		s.logger.Warn("failed to decode interaction", "error", err)
		return c.Status(fiber.StatusBadRequest).SendString("malformed interaction")
	}

	if interaction.Type == discordgo.InteractionPing {
		return c.JSON(discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong})
	}

	inv, ok := discord.InvocationFromInteraction(&interaction)
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}

	if !s.router.Handles(inv.Command) {
		return c.SendStatus(fiber.StatusNoContent)
	}

	// the command keeps running after a deferral, so it must not share the
	// lifetime of the request
	ctx := context.WithoutCancel(c.UserContext())
	replies := make(chan keybot.Reply, 1)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		reply, ok := s.router.Dispatch(ctx, inv)
		if !ok {
			reply = keybot.Reply{Content: keybot.MessageGenericFailure, Ephemeral: true}
		}
		replies <- reply
	}()

	timer := time.NewTimer(s.ackWindow)
	defer timer.Stop()

	select {
	case reply := <-replies:
		return c.JSON(discord.ResponseFromReply(reply))
	case <-timer.C:
	}

	s.logger.Debug("deferring slow command", "command", inv.Command, "interaction_id", interaction.ID)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := discord.EditReply(ctx, s.editor, &interaction, <-replies); err != nil {
			s.logger.Error("failed to deliver deferred reply", "interaction_id", interaction.ID, "error", err)
		}
	}()

	return c.JSON(discord.DeferredResponse())
}
