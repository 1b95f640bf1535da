package keybot

import (
	"context"
)

const (
	CommandRegister  = "register"
	CommandCreateKey = "createkey"
	OptionKey        = "key"
)

// Invocation is a command call received from the platform
type Invocation struct {
	Command  string
	Options  map[string]string
	UserID   string
	Username string
}

// Option returns a supplied option value or an empty string
func (i Invocation) Option(name string) string {
	if i.Options == nil {
		return ""
	}
	return i.Options[name]
}

// Reply is the answer sent back to the invoking user
type Reply struct {
	Content   string
	Ephemeral bool
}

// CommandRouter dispatches invocations to the command handlers
type CommandRouter struct {
	register  *RegisterHandler
	createKey *CreateKeyHandler
	logger    Logger
}

var _ Dispatcher = (*CommandRouter)(nil)

func NewCommandRouter(register *RegisterHandler, createKey *CreateKeyHandler) *CommandRouter {
	return &CommandRouter{
		register:  register,
		createKey: createKey,
		logger:    defLogger{},
	}
}

func (r *CommandRouter) WithLogger(logger Logger) *CommandRouter {
	if logger != nil {
		r.logger = logger
	}
	return r
}

func (r *CommandRouter) Handles(command string) bool {
	switch command {
	case CommandRegister, CommandCreateKey:
		return true
	default:
		return false
	}
}

// Dispatch runs the workflow for inv. The second return value is false for
// commands this bot does not handle, in which case nothing is sent back.
func (r *CommandRouter) Dispatch(ctx context.Context, inv Invocation) (Reply, bool) {
	switch inv.Command {
	case CommandRegister:
		return r.dispatchRegister(ctx, inv), true
	case CommandCreateKey:
		return r.dispatchCreateKey(ctx, inv), true
	default:
		r.logger.Debug("ignoring unknown command", "command", inv.Command, "user_id", inv.UserID)
		return Reply{}, false
	}
}

func (r *CommandRouter) dispatchRegister(ctx context.Context, inv Invocation) Reply {
	var content string
	err := r.register.Execute(ctx, RegisterMessage{
		Key:      inv.Option(OptionKey),
		UserID:   inv.UserID,
		Username: inv.Username,
		OnResponse: func(resp *RegisterResponse) {
			content = registeredMessage(resp.Token)
		},
	})
	if err != nil {
		r.logger.Debug("register failed", "user_id", inv.UserID, "text_code", TextCode(err))
		return private(PublicMessage(err))
	}
	return private(content)
}

func (r *CommandRouter) dispatchCreateKey(ctx context.Context, inv Invocation) Reply {
	var content string
	err := r.createKey.Execute(ctx, CreateKeyMessage{
		UserID: inv.UserID,
		OnResponse: func(resp *CreateKeyResponse) {
			content = keyCreatedMessage(resp.Key.Value)
		},
	})
	if err != nil {
		r.logger.Debug("createkey failed", "user_id", inv.UserID, "text_code", TextCode(err))
		return private(PublicMessage(err))
	}
	return private(content)
}

func private(content string) Reply {
	return Reply{Content: content, Ephemeral: true}
}
