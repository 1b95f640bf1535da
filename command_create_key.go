package keybot

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type CreateKeyMessage struct {
	UserID     string `json:"user_id"`
	OnResponse func(resp *CreateKeyResponse)
}

func (e CreateKeyMessage) Type() string { return "key.create" }

type CreateKeyResponse struct {
	Key *RegistrationKey
}

// CreateKeyHandler stores a new unused registration key. Callers are
// expected to be administrators, the platform enforces it.
type CreateKeyHandler struct {
	store    CredentialStore
	timeout  time.Duration
	generate func() (string, error)
	activity ActivitySink
	logger   Logger
}

func NewCreateKeyHandler(store CredentialStore) *CreateKeyHandler {
	return &CreateKeyHandler{
		store:    store,
		timeout:  DefaultCommandTimeout,
		generate: NewKeyValue,
		logger:   defLogger{},
	}
}

func (h *CreateKeyHandler) WithLogger(logger Logger) *CreateKeyHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *CreateKeyHandler) WithActivitySink(sink ActivitySink) *CreateKeyHandler {
	h.activity = sink
	return h
}

// WithKeyGenerator overrides how key values are produced
func (h *CreateKeyHandler) WithKeyGenerator(generate func() (string, error)) *CreateKeyHandler {
	if generate != nil {
		h.generate = generate
	}
	return h
}

func (h *CreateKeyHandler) Execute(ctx context.Context, event CreateKeyMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during key creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateKeyHandler) execute(ctx context.Context, event CreateKeyMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	value, err := h.generate()
	if err != nil {
		return internalFailure(err, TextCodeKeyCreateFailure, "failed to generate key")
	}

	key := NewRegistrationKey(value)
	if err := h.store.InsertKey(ctx, key); err != nil {
		h.logger.Error("create key insert failed", "user_id", event.UserID, "error", err)
		return internalFailure(err, TextCodeKeyCreateFailure, "failed to store key")
	}

	h.logger.Info("created registration key", "user_id", event.UserID, "key_id", key.ID.String())
	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventKeyCreated,
		UserID:    event.UserID,
		KeyID:     key.ID.String(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&CreateKeyResponse{Key: key})
	}

	return nil
}
