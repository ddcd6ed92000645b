// Package authn extracts and verifies request credentials: HTTP
// Basic/Bearer headers, Argon2id/bcrypt password checks, and HS256 JWT
// bearer tokens.
package authn

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// CredentialKind distinguishes the two Authorization schemes ReedCMS
// accepts.
type CredentialKind int

const (
	KindBasic CredentialKind = iota
	KindBearer
)

// Credentials is the parsed form of an Authorization header.
type Credentials struct {
	Kind     CredentialKind
	Username string
	Password string
	Token    string
}

// ExtractCredentials parses the Authorization header off req, supporting
// "Basic <base64(user:pass)>" and "Bearer <token>".
func ExtractCredentials(req *http.Request) (Credentials, error) {
	header := req.Header.Get("Authorization")
	if header == "" {
		return Credentials{}, reedstream.Auth("", "extract_credentials", "missing Authorization header")
	}

	switch {
	case strings.HasPrefix(header, "Basic "):
		return parseBasicAuth(header)
	case strings.HasPrefix(header, "Bearer "):
		return parseBearerAuth(header)
	default:
		return Credentials{}, reedstream.Auth("", "extract_credentials", "unsupported authentication type")
	}
}

func parseBasicAuth(header string) (Credentials, error) {
	encoded := strings.TrimPrefix(header, "Basic ")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Credentials{}, reedstream.Auth("", "parse_basic_auth", "invalid base64 encoding")
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return Credentials{}, reedstream.Auth("", "parse_basic_auth", "invalid credentials format (expected username:password)")
	}

	return Credentials{Kind: KindBasic, Username: parts[0], Password: parts[1]}, nil
}

func parseBearerAuth(header string) (Credentials, error) {
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return Credentials{}, reedstream.Auth("", "parse_bearer_auth", "empty token")
	}
	return Credentials{Kind: KindBearer, Token: token}, nil
}
