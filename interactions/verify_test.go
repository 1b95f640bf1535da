package interactions_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/goliatone/go-keybot/interactions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	parsed, err := interactions.ParsePublicKey(hex.EncodeToString(pub))
	require.NoError(t, err)
	assert.Equal(t, pub, parsed)

	_, err = interactions.ParsePublicKey("zz")
	assert.Error(t, err)

	_, err = interactions.ParsePublicKey(strings.Repeat("ab", 16))
	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	body := []byte(`{"type":1}`)
	sig := hex.EncodeToString(ed25519.Sign(priv, append([]byte("123"), body...)))

	assert.True(t, interactions.VerifySignature(pub, sig, "123", body))
	assert.False(t, interactions.VerifySignature(pub, sig, "124", body), "timestamp is part of the message")
	assert.False(t, interactions.VerifySignature(pub, sig, "123", []byte(`{"type":2}`)))
	assert.False(t, interactions.VerifySignature(pub, "", "123", body))
	assert.False(t, interactions.VerifySignature(pub, "not-hex", "123", body))
	assert.False(t, interactions.VerifySignature(nil, sig, "123", body))
}
