package keybot

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// CredentialStore is the typed facade over the keys and passwords tables.
// Every method is a single round-trip and is never retried.
type CredentialStore interface {
	FindKeyByValue(ctx context.Context, value string) (*RegistrationKey, error)
	MarkKeyUsed(ctx context.Context, value string) error
	InsertCredential(ctx context.Context, credential *Credential) error
	InsertKey(ctx context.Context, key *RegistrationKey) error
	// ProvisionCredential claims an unused key and inserts the credential.
	// Either both writes happen or neither does.
	ProvisionCredential(ctx context.Context, value string, credential *Credential) error
}

// Profile is the platform identity of an account
type Profile struct {
	ID       string
	Username string
}

// IdentityVerifier resolves platform accounts and their guild roles
type IdentityVerifier interface {
	Profile(ctx context.Context, accountID string) (*Profile, error)
	// MemberRoles returns an empty list when the account is not a member or the
	// role list is missing.
	MemberRoles(ctx context.Context, guildID, accountID string) ([]string, error)
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(userID, username string) (string, time.Time, error)
}

// Dispatcher routes a command invocation to a reply
type Dispatcher interface {
	// Handles reports whether Dispatch would answer command. Transports use it
	// to acknowledge a command before running it.
	Handles(command string) bool
	Dispatch(ctx context.Context, inv Invocation) (Reply, bool)
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) { printLine("[ERR]", msg, args) }

func (d defLogger) Warn(msg string, args ...any) { printLine("[WRN]", msg, args) }

func (d defLogger) Info(msg string, args ...any) { printLine("[INF]", msg, args) }

func (d defLogger) Debug(msg string, args ...any) { printLine("[DBG]", msg, args) }

// printLine renders args as key=value pairs after the message
func printLine(level, msg string, args []any) {
	line := level + " KEYBOT " + msg
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			line += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		} else {
			line += fmt.Sprintf(" %v", args[i])
		}
	}
	fmt.Println(line)
}
