package keybot

import (
	"context"
	"slices"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultCommandTimeout bounds the remote calls of a single command
const DefaultCommandTimeout = 10 * time.Second

type RegisterMessage struct {
	Key        string `json:"key"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	OnResponse func(resp *RegisterResponse)
}

func (e RegisterMessage) Type() string { return "key.register" }

type RegisterResponse struct {
	Token      string
	ExpiresAt  time.Time
	Credential *Credential
}

// RegisterHandler consumes a registration key and provisions a credential
type RegisterHandler struct {
	store          CredentialStore
	verifier       IdentityVerifier
	tokens         TokenIssuer
	guildID        string
	requiredRoleID string
	timeout        time.Duration
	newSecret      func() (string, error)
	activity       ActivitySink
	logger         Logger
}

func NewRegisterHandler(store CredentialStore, verifier IdentityVerifier, tokens TokenIssuer, guildID, requiredRoleID string) *RegisterHandler {
	return &RegisterHandler{
		store:          store,
		verifier:       verifier,
		tokens:         tokens,
		guildID:        guildID,
		requiredRoleID: requiredRoleID,
		timeout:        DefaultCommandTimeout,
		newSecret:      NewCredentialSecret,
		logger:         defLogger{},
	}
}

func (h *RegisterHandler) WithLogger(logger Logger) *RegisterHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterHandler) WithActivitySink(sink ActivitySink) *RegisterHandler {
	h.activity = sink
	return h
}

func (h *RegisterHandler) WithTimeout(timeout time.Duration) *RegisterHandler {
	if timeout > 0 {
		h.timeout = timeout
	}
	return h
}

func (h *RegisterHandler) Execute(ctx context.Context, event RegisterMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during key registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterHandler) execute(ctx context.Context, event RegisterMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	value := strings.TrimSpace(event.Key)
	if value == "" {
		return ErrKeyNotFound
	}

	key, err := h.store.FindKeyByValue(ctx, value)
	if err != nil {
		if HasTextCode(err, TextCodeInvalidKey) {
			return err
		}
		h.logger.Error("register key lookup failed", "user_id", event.UserID, "error", err)
		return internalFailure(err, TextCodeKeyLookupFailure, "failed to look up registration key")
	}
	if key.Used {
		return ErrKeyUsed
	}

	profile, err := h.verifier.Profile(ctx, event.UserID)
	if err != nil {
		h.logger.Error("register profile lookup failed", "user_id", event.UserID, "error", err)
		return internalFailure(err, TextCodePlatformFailure, "failed to fetch account profile")
	}

	roles, err := h.verifier.MemberRoles(ctx, h.guildID, event.UserID)
	if err != nil {
		h.logger.Error("register role lookup failed", "user_id", event.UserID, "error", err)
		return internalFailure(err, TextCodePlatformFailure, "failed to fetch guild roles")
	}

	if !slices.Contains(roles, h.requiredRoleID) {
		h.logger.Info("register rejected, missing role", "user_id", event.UserID, "role_id", h.requiredRoleID)
		recordActivity(ctx, h.activity, h.logger, ActivityEvent{
			EventType: ActivityEventRegisterRejected,
			UserID:    event.UserID,
			KeyID:     key.ID.String(),
			Metadata:  map[string]any{"reason": TextCodeMissingRole},
		})
		return ErrMissingRole
	}

	password, err := h.newSecret()
	if err != nil {
		return internalFailure(err, TextCodeStoreFailure, "failed to generate credential secret")
	}

	// signed before the key is consumed so a signing failure leaves it usable
	token, expiresAt, err := h.tokens.Issue(event.UserID, event.Username)
	if err != nil {
		h.logger.Error("register token signing failed", "user_id", event.UserID, "error", err)
		return internalFailure(err, TextCodeTokenFailure, "failed to issue session token")
	}

	credential := NewCredential(password, profile.ID, event.UserID)
	if err := h.store.ProvisionCredential(ctx, value, credential); err != nil {
		if HasTextCode(err, TextCodeKeyUsed) {
			h.logger.Info("register lost key claim", "user_id", event.UserID)
			recordActivity(ctx, h.activity, h.logger, ActivityEvent{
				EventType: ActivityEventRegisterLostClaim,
				UserID:    event.UserID,
				KeyID:     key.ID.String(),
			})
			return err
		}
		h.logger.Error("register provisioning failed", "user_id", event.UserID, "error", err)
		return storeFailure(err, "provision_credential")
	}

	h.logger.Info("registered account", "user_id", event.UserID, "credential_id", credential.ID.String())
	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventKeyRegistered,
		UserID:    event.UserID,
		KeyID:     key.ID.String(),
		Metadata:  map[string]any{"credential_id": credential.ID.String()},
	})

	if event.OnResponse != nil {
		event.OnResponse(&RegisterResponse{
			Token:      token,
			ExpiresAt:  expiresAt,
			Credential: credential,
		})
	}

	return nil
}
