package keybot

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// secretBytes is the entropy of both keys and passwords, 16 hex characters
const secretBytes = 8

// NewKeyValue returns a random uppercase hex registration key
func NewKeyValue() (string, error) {
	s, err := randomHex(secretBytes)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

// NewCredentialSecret returns a random lowercase hex password
func NewCredentialSecret() (string, error) {
	return randomHex(secretBytes)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
