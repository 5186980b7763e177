package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const invitationAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const InvitationCodeLen = 10

// NewSessionToken returns a fresh bearer token and the digest stored server-side.
func NewSessionToken() (raw string, hash string, err error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", "", err
	}
	raw = id.String()
	return raw, HashToken(raw), nil
}

func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ValidTokenFormat reports whether raw looks like a token issued by NewSessionToken.
func ValidTokenFormat(raw string) bool {
	id, err := uuid.Parse(raw)
	return err == nil && id.Version() == 4 && len(raw) == 36
}

func NewInvitationCode() (string, error) {
	buf := make([]byte, InvitationCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, InvitationCodeLen)
	for i, b := range buf {
		out[i] = invitationAlphabet[int(b)%len(invitationAlphabet)]
	}
	return string(out), nil
}

func NewAccountID() string {
	return ulid.Make().String()
}
