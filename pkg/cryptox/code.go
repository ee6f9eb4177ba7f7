package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for one-time code hashing. Codes are short-lived and
// six digits, so brute force is bounded by the attempt counter rather than
// the hash cost, but at-rest hashes still must not reveal the code.
const (
	codeSaltLength  = 16
	codeIterations  = 2
	codeMemory      = 19 * 1024 // KiB
	codeParallelism = 1
	codeKeyLength   = 32
)

// ErrCodeMismatch is returned by VerifyCodeHash when the candidate does not
// match the stored hash.
var ErrCodeMismatch = errors.New("cryptox: code does not match")

// GenerateNumericCode returns a random code of n decimal digits, left-padded
// with zeros. Uses crypto/rand; never use math/rand for one-time codes.
func GenerateNumericCode(n int) (string, error) {
	if n <= 0 || n > 10 {
		return "", fmt.Errorf("code length must be 1..10, got %d", n)
	}

	bound := big.NewInt(1)
	for range n {
		bound.Mul(bound, big.NewInt(10))
	}

	v, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", fmt.Errorf("failed to generate random code: %w", err)
	}

	return fmt.Sprintf("%0*d", n, v), nil
}

// HashCode generates a PHC-format Argon2id hash string including salt and
// parameters, suitable for storing an issued one-time code at rest.
func HashCode(code string) (string, error) {
	salt := make([]byte, codeSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(code), salt, codeIterations, codeMemory, codeParallelism, codeKeyLength)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		codeMemory,
		codeIterations,
		codeParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyCodeHash compares a candidate code against a PHC-style Argon2id hash
// in constant time. Returns ErrCodeMismatch when they differ.
func VerifyCodeHash(code, encodedHash string) error {
	// Parse PHC format: $argon2id$v=19$m=X,t=Y,p=Z$salt$hash
	parts := splitDollar(encodedHash)
	if len(parts) != 6 {
		return errors.New("cryptox: invalid hash format: expected 6 parts")
	}
	if parts[1] != "argon2id" {
		return errors.New("cryptox: invalid hash format: not argon2id")
	}
	if parts[2] != "v=19" {
		return errors.New("cryptox: invalid hash format: wrong version")
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("cryptox: invalid hash format: failed to parse parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("cryptox: invalid hash format: failed to decode salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("cryptox: invalid hash format: failed to decode hash: %w", err)
	}

	computed := argon2.IDKey([]byte(code), salt, iters, mem, par, uint32(len(expected))) // #nosec G115

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrCodeMismatch
}

func splitDollar(s string) []string {
	parts := make([]string, 0, 6)
	start := 0
	for i := range len(s) {
		if s[i] == '$' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
