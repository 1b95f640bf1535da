package keybot_test

import (
	"context"
	"time"

	"github.com/goliatone/go-keybot"
	"github.com/stretchr/testify/mock"
)

// MockCredentialStore implements keybot.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) FindKeyByValue(ctx context.Context, value string) (*keybot.RegistrationKey, error) {
	args := m.Called(ctx, value)
	key, _ := args.Get(0).(*keybot.RegistrationKey)
	return key, args.Error(1)
}

func (m *MockCredentialStore) MarkKeyUsed(ctx context.Context, value string) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

func (m *MockCredentialStore) InsertCredential(ctx context.Context, credential *keybot.Credential) error {
	args := m.Called(ctx, credential)
	return args.Error(0)
}

func (m *MockCredentialStore) InsertKey(ctx context.Context, key *keybot.RegistrationKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCredentialStore) ProvisionCredential(ctx context.Context, value string, credential *keybot.Credential) error {
	args := m.Called(ctx, value, credential)
	return args.Error(0)
}

// MockIdentityVerifier implements keybot.IdentityVerifier
type MockIdentityVerifier struct {
	mock.Mock
}

func (m *MockIdentityVerifier) Profile(ctx context.Context, accountID string) (*keybot.Profile, error) {
	args := m.Called(ctx, accountID)
	profile, _ := args.Get(0).(*keybot.Profile)
	return profile, args.Error(1)
}

func (m *MockIdentityVerifier) MemberRoles(ctx context.Context, guildID, accountID string) ([]string, error) {
	args := m.Called(ctx, guildID, accountID)
	roles, _ := args.Get(0).([]string)
	return roles, args.Error(1)
}

// MockTokenIssuer implements keybot.TokenIssuer
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(userID, username string) (string, time.Time, error) {
	args := m.Called(userID, username)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// staticVerifier answers every account with the same roles
type staticVerifier struct {
	roles []string
}

func (v staticVerifier) Profile(_ context.Context, accountID string) (*keybot.Profile, error) {
	return &keybot.Profile{ID: accountID, Username: "user-" + accountID}, nil
}

func (v staticVerifier) MemberRoles(context.Context, string, string) ([]string, error) {
	return v.roles, nil
}
