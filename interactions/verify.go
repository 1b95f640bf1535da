package interactions

import (
	"crypto/ed25519"
	"encoding/hex"

	goerrors "github.com/goliatone/go-errors"
)

const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

// ParsePublicKey decodes the hex encoded application public key
func ParsePublicKey(hexKey string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "public key is not valid hex")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, goerrors.New("public key has wrong size", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"size": len(raw)})
	}
	return ed25519.PublicKey(raw), nil
}

// VerifySignature checks the Discord request signature, computed over the
// timestamp header followed by the raw body.
func VerifySignature(key ed25519.PublicKey, signature, timestamp string, body []byte) bool {
	if len(key) != ed25519.PublicKeySize || signature == "" || timestamp == "" {
		return false
	}

	sig, err := hex.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)

	return ed25519.Verify(key, msg, sig)
}
