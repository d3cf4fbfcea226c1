package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// sessionTokenBytes is the entropy of a session token before hex encoding.
const sessionTokenBytes = 32

// NewSessionToken generates a cryptographically random 64-character hex token.
// Tokens are independent of any previous token for the same user.
func NewSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
