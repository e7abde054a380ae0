package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// SessionID is a 128-bit random session identifier.
type SessionID [16]byte

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

// String renders the id as unpadded base64url.
func (s SessionID) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// NewSessionIDString returns a fresh id already rendered as a string.
func NewSessionIDString() (string, error) {
	sid, err := NewSessionID()
	if err != nil {
		return "", err
	}
	return sid.String(), nil
}

// TokenDigest is the hex SHA-256 of a token, used wherever a token must be
// an index key without being stored in the clear.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
