package accounts

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/argon2"
)

// Argon2Hasher produces PHC formatted argon2id hashes:
// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
type Argon2Hasher struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var _ PasswordHasher = Argon2Hasher{}

// NewArgon2Hasher returns a hasher with the recommended parameters
func NewArgon2Hasher() Argon2Hasher {
	return Argon2Hasher{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (a Argon2Hasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, a.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate salt")
	}

	key := argon2.IDKey([]byte(password), salt, a.Iterations, a.Memory, a.Parallelism, a.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.Memory,
		a.Iterations,
		a.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (a Argon2Hasher) ComparePasswordAndHash(password, encoded string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return goerrors.New("invalid argon2id hash format", goerrors.CategoryInternal)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return goerrors.New("unsupported argon2 version", goerrors.CategoryInternal)
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invalid argon2id parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invalid argon2id salt")
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invalid argon2id key")
	}

	if err := checkArgon2Params(memory, iterations, parallelism, salt, hash); err != nil {
		return err
	}

	calc := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(hash)))
	if subtle.ConstantTimeCompare(hash, calc) != 1 {
		return ErrMismatchedHashAndPassword
	}

	return nil
}

const (
	argon2MinSaltLength = 8
	argon2MinKeyLength  = 4
	argon2MaxMemory     = 4 * 1024 * 1024
)

// checkArgon2Params rejects values argon2.IDKey would panic on or that no
// hash produced by this package could carry
func checkArgon2Params(memory, iterations uint32, parallelism uint8, salt, key []byte) error {
	switch {
	case iterations == 0:
		return goerrors.New("invalid argon2id parameters: t must be positive", goerrors.CategoryInternal)
	case parallelism == 0:
		return goerrors.New("invalid argon2id parameters: p must be positive", goerrors.CategoryInternal)
	case memory < 8*uint32(parallelism) || memory > argon2MaxMemory:
		return goerrors.New("invalid argon2id parameters: m out of range", goerrors.CategoryInternal)
	case len(salt) < argon2MinSaltLength:
		return goerrors.New("invalid argon2id salt", goerrors.CategoryInternal)
	case len(key) < argon2MinKeyLength:
		return goerrors.New("invalid argon2id key", goerrors.CategoryInternal)
	}
	return nil
}
