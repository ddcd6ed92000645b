package authn

import (
	"github.com/vvoss-dev/reedcms/internal/reedstream"
	"github.com/vvoss-dev/reedcms/internal/security"
)

// UserLookup resolves a username to its stored password hash.
type UserLookup func(username string) (hash string, found bool)

// VerifyBasic checks creds (which must be KindBasic) against the hash
// lookup, accepting both Argon2id and legacy bcrypt hashes.
func VerifyBasic(creds Credentials, lookup UserLookup) error {
	if creds.Kind != KindBasic {
		return reedstream.Auth(creds.Username, "verify_basic", "credentials are not Basic")
	}

	hash, found := lookup(creds.Username)
	if !found {
		return reedstream.Auth(creds.Username, "verify_basic", "unknown user")
	}

	var ok bool
	var err error
	if security.IsArgon2Hash(hash) {
		ok, err = security.VerifyPassword(creds.Password, hash)
	} else {
		ok = security.LegacyBcryptVerify(creds.Password, hash)
	}
	if err != nil || !ok {
		return reedstream.Auth(creds.Username, "verify_basic", "invalid password")
	}
	return nil
}
