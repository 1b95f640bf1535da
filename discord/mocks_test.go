package discord_test

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/goliatone/go-keybot"
	"github.com/stretchr/testify/mock"
)

type MockRESTClient struct {
	mock.Mock
}

func (m *MockRESTClient) User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error) {
	args := m.Called(userID)
	user, _ := args.Get(0).(*discordgo.User)
	return user, args.Error(1)
}

func (m *MockRESTClient) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	args := m.Called(guildID, userID)
	member, _ := args.Get(0).(*discordgo.Member)
	return member, args.Error(1)
}

// MockSession implements discord.Session
type MockSession struct {
	mock.Mock
	handler any
}

func (m *MockSession) ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	args := m.Called(appID, guildID, commands)
	registered, _ := args.Get(0).([]*discordgo.ApplicationCommand)
	return registered, args.Error(1)
}

func (m *MockSession) AddHandler(handler interface{}) func() {
	m.Called()
	m.handler = handler
	return func() { m.handler = nil }
}

func (m *MockSession) Open() error {
	return m.Called().Error(0)
}

func (m *MockSession) Close() error {
	return m.Called().Error(0)
}

func (m *MockSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	return m.Called(interaction, resp).Error(0)
}

func (m *MockSession) InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(interaction, newresp)
	msg, _ := args.Get(0).(*discordgo.Message)
	return msg, args.Error(1)
}

// fakeDispatcher records invocations and answers with a fixed reply. When
// release is set Dispatch blocks until it is closed.
type fakeDispatcher struct {
	mu      sync.Mutex
	reply   keybot.Reply
	handled bool
	calls   []keybot.Invocation
	release chan struct{}
}

func (d *fakeDispatcher) Handles(string) bool {
	return d.handled
}

func (d *fakeDispatcher) Dispatch(_ context.Context, inv keybot.Invocation) (keybot.Reply, bool) {
	if d.release != nil {
		<-d.release
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, inv)
	return d.reply, d.handled
}

func (d *fakeDispatcher) invocations() []keybot.Invocation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]keybot.Invocation(nil), d.calls...)
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
