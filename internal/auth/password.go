package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Hasher is the password hashing capability used by registration and login.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// Tuned for low-memory ARM servers while still using Argon2id.
const (
	argonMemory      = 32 * 1024 // 32 MiB
	argonIterations  = 2
	argonParallelism = 1
	argonKeyLen      = 32
	saltLen          = 16
)

const DefaultBcryptCost = 10

var ErrUnknownHasher = errors.New("unknown password hasher")

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (BcryptHasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

type Argon2idHasher struct{}

func (Argon2idHasher) Hash(plain string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(plain), salt, argonIterations, argonMemory, argonParallelism, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func (Argon2idHasher) Verify(plain, digest string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}
	var mem uint32
	var it uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return false
	}
	if mem == 0 || it == 0 || par == 0 || mem > 256*1024 || it > 16 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return false
	}
	other := argon2.IDKey([]byte(plain), salt, it, mem, par, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, other) == 1
}

// MultiHasher hashes with Primary and verifies digests produced by any
// supported algorithm, so switching PASSWORD_HASHER keeps old accounts working.
type MultiHasher struct {
	Primary Hasher
}

func (m MultiHasher) Hash(plain string) (string, error) {
	return m.Primary.Hash(plain)
}

func (m MultiHasher) Verify(plain, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return Argon2idHasher{}.Verify(plain, digest)
	case strings.HasPrefix(digest, "$2"):
		return BcryptHasher{}.Verify(plain, digest)
	}
	return false
}

func NewHasher(name string, bcryptCost int) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "bcrypt":
		if bcryptCost != 0 && (bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost) {
			return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
		}
		return MultiHasher{Primary: BcryptHasher{Cost: bcryptCost}}, nil
	case "argon2id":
		return MultiHasher{Primary: Argon2idHasher{}}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownHasher, name)
}
