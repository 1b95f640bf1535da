package interactions_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/goliatone/go-keybot"
	"github.com/goliatone/go-keybot/interactions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher answers with a fixed reply. When release is set Dispatch
// blocks until it is closed.
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

type recordedEdit struct {
	interactionID string
	token         string
	content       string
}

// fakeEditor stands in for the webhook edit endpoint
type fakeEditor struct {
	edits chan recordedEdit
}

func newFakeEditor() *fakeEditor {
	return &fakeEditor{edits: make(chan recordedEdit, 4)}
}

func (e *fakeEditor) InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	edit := recordedEdit{interactionID: interaction.ID, token: interaction.Token}
	if newresp.Content != nil {
		edit.content = *newresp.Content
	}
	e.edits <- edit
	return &discordgo.Message{}, nil
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

func newSignedRequest(t *testing.T, priv ed25519.PrivateKey, body string) *http.Request {
	t.Helper()
	timestamp := "1700000000"
	sig := ed25519.Sign(priv, []byte(timestamp+body))

	req := httptest.NewRequest(http.MethodPost, interactions.RouteInteractions, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(interactions.HeaderSignature, hex.EncodeToString(sig))
	req.Header.Set(interactions.HeaderTimestamp, timestamp)
	return req
}

func setupServer(t *testing.T, dispatcher *fakeDispatcher, opts ...interactions.Option) (*interactions.Server, *fakeEditor, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	editor := newFakeEditor()
	opts = append([]interactions.Option{interactions.WithLogger(testLogger{})}, opts...)
	return interactions.NewServer(dispatcher, editor, pub, opts...), editor, priv
}

const registerBody = `{
	"id": "i-1",
	"application_id": "app",
	"type": 2,
	"token": "tok",
	"guild_id": "1000",
	"member": {"user": {"id": "3000", "username": "pepe"}, "roles": []},
	"data": {
		"id": "c-1",
		"name": "register",
		"type": 1,
		"options": [{"name": "key", "type": 3, "value": "ABC"}]
	}
}`

func TestServer_Ping(t *testing.T) {
	server, _, priv := setupServer(t, &fakeDispatcher{})

	resp, err := server.App().Test(newSignedRequest(t, priv, `{"id":"i-0","type":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out discordgo.InteractionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, discordgo.InteractionResponsePong, out.Type)
}

func TestServer_Command(t *testing.T) {
	dispatcher := &fakeDispatcher{
		reply:   keybot.Reply{Content: keybot.MessageInvalidKey, Ephemeral: true},
		handled: true,
	}
	server, editor, priv := setupServer(t, dispatcher)

	resp, err := server.App().Test(newSignedRequest(t, priv, registerBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out discordgo.InteractionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, out.Type)
	require.NotNil(t, out.Data)
	assert.Equal(t, keybot.MessageInvalidKey, out.Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, out.Data.Flags)

	calls := dispatcher.invocations()
	require.Len(t, calls, 1)
	assert.Equal(t, keybot.CommandRegister, calls[0].Command)
	assert.Equal(t, "ABC", calls[0].Option(keybot.OptionKey))
	assert.Equal(t, "3000", calls[0].UserID)
	assert.Empty(t, editor.edits, "fast commands answer inline")
}

func TestServer_DefersSlowCommand(t *testing.T) {
	release := make(chan struct{})
	dispatcher := &fakeDispatcher{
		reply:   keybot.Reply{Content: "Registration complete", Ephemeral: true},
		handled: true,
		release: release,
	}
	server, editor, priv := setupServer(t, dispatcher, interactions.WithAckWindow(20*time.Millisecond))

	resp, err := server.App().Test(newSignedRequest(t, priv, registerBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out discordgo.InteractionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, out.Type)
	require.NotNil(t, out.Data)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, out.Data.Flags)
	assert.Empty(t, editor.edits)

	close(release)

	select {
	case edit := <-editor.edits:
		assert.Equal(t, "i-1", edit.interactionID)
		assert.Equal(t, "tok", edit.token)
		assert.Equal(t, "Registration complete", edit.content)
	case <-time.After(time.Second):
		t.Fatal("deferred reply was never delivered")
	}
}

func TestServer_ShutdownWaitsForDeferredReplies(t *testing.T) {
	release := make(chan struct{})
	dispatcher := &fakeDispatcher{reply: keybot.Reply{Content: "done"}, handled: true, release: release}
	server, editor, priv := setupServer(t, dispatcher, interactions.WithAckWindow(10*time.Millisecond))

	_, err := server.App().Test(newSignedRequest(t, priv, registerBody))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, server.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, server.Shutdown(context.Background()))
	assert.Len(t, editor.edits, 1)
}

func TestServer_Serve(t *testing.T) {
	server, _, _ := setupServer(t, &fakeDispatcher{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- server.Serve(ln) }()

	url := "http://" + ln.Addr().String() + interactions.RouteHealth
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, server.Shutdown(context.Background()))
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	server, _, priv := setupServer(t, &fakeDispatcher{handled: false})

	resp, err := server.App().Test(newSignedRequest(t, priv, registerBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestServer_RejectsBadSignature(t *testing.T) {
	dispatcher := &fakeDispatcher{handled: true}
	server, _, _ := setupServer(t, dispatcher)

	_, otherKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	resp, err := server.App().Test(newSignedRequest(t, otherKey, registerBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	unsigned := httptest.NewRequest(http.MethodPost, interactions.RouteInteractions, strings.NewReader(registerBody))
	resp, err = server.App().Test(unsigned)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Empty(t, dispatcher.invocations())
}

func TestServer_MalformedBody(t *testing.T) {
	server, _, priv := setupServer(t, &fakeDispatcher{})

	resp, err := server.App().Test(newSignedRequest(t, priv, `{not json`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	server, _, _ := setupServer(t, &fakeDispatcher{})

	resp, err := server.App().Test(httptest.NewRequest(http.MethodGet, interactions.RouteHealth, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}
