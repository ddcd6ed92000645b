package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// Argon2id parameters per spec.md §4.8: 64 MiB memory, 3 iterations,
// 4-way parallelism, 32-byte output.
const (
	argon2Memory      = 64 * 1024
	argon2Iterations  = 3
	argon2Parallelism = 4
	argon2SaltLen     = 16
	argon2KeyLen      = 32
)

// HashPassword produces a PHC-formatted Argon2id hash string
// ("$argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>").
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", reedstream.Validation("password", "", "password cannot be empty")
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", reedstream.Config("argon2", "failed to generate salt: "+err.Error())
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Iterations, argon2Memory, argon2Parallelism, argon2KeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Iterations,
		argon2Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// VerifyPassword reports whether password matches the PHC-formatted
// Argon2id hash. A mismatch is reported as (false, nil), not an error —
// only malformed hashes or empty input are errors.
func VerifyPassword(password, hash string) (bool, error) {
	if password == "" {
		return false, reedstream.Validation("password", "", "password cannot be empty")
	}

	memory, iterations, parallelism, salt, key, err := parsePHC(hash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}

func parsePHC(hash string) (memory uint32, iterations uint32, parallelism uint8, salt, key []byte, err error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, reedstream.Validation("hash", hash, "not a valid argon2id PHC string")
	}
	var version int
	if _, scanErr := fmt.Sscanf(parts[2], "v=%d", &version); scanErr != nil {
		return 0, 0, 0, nil, nil, reedstream.Validation("hash", hash, "invalid version segment")
	}
	var m, t, p int
	if _, scanErr := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); scanErr != nil {
		return 0, 0, 0, nil, nil, reedstream.Validation("hash", hash, "invalid parameter segment")
	}
	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, reedstream.Validation("hash", hash, "invalid salt encoding")
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return 0, 0, 0, nil, nil, reedstream.Validation("hash", hash, "invalid key encoding")
	}
	return uint32(m), uint32(t), uint8(p), salt, key, nil
}

// LegacyBcryptHash and LegacyBcryptVerify support credentials created
// before ReedCMS migrated to Argon2id (spec.md doesn't name a migration
// path, but flat-file deployments upgraded in place commonly carry old
// bcrypt hashes; this keeps them verifiable without a forced reset).
func LegacyBcryptHash(password string) (string, error) {
	if password == "" {
		return "", reedstream.Validation("password", "", "password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", reedstream.Config("bcrypt", err.Error())
	}
	return string(hash), nil
}

func LegacyBcryptVerify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsArgon2Hash reports whether hash is a PHC-formatted argon2id string,
// letting callers route to the right verifier without guessing.
func IsArgon2Hash(hash string) bool {
	return strings.HasPrefix(hash, "$argon2id$")
}
