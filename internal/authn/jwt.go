package authn

import (
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// JWTService signs and verifies HS256 bearer tokens for API clients.
type JWTService struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTService builds a service with no issuer/audience validation.
func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret)}
}

// NewJWTServiceWithIssuer builds a service that also validates the
// issuer and audience claims on verification.
func NewJWTServiceWithIssuer(secret, issuer, audience string) *JWTService {
	return &JWTService{secret: []byte(secret), issuer: issuer, audience: audience}
}

// IssueToken signs a token for userID, valid for ttl.
func (j *JWTService) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	builder := jwt.NewBuilder().
		Subject(userID).
		IssuedAt(now).
		Expiration(now.Add(ttl))

	if j.issuer != "" {
		builder = builder.Issuer(j.issuer)
	}
	if j.audience != "" {
		builder = builder.Audience([]string{j.audience})
	}

	token, err := builder.Build()
	if err != nil {
		return "", reedstream.Auth(userID, "issue_token", err.Error())
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, j.secret))
	if err != nil {
		return "", reedstream.Auth(userID, "issue_token", err.Error())
	}
	return string(signed), nil
}

// VerifyToken parses and validates tokenString's signature, expiration,
// and (when configured) issuer/audience, returning the token's subject
// on success.
func (j *JWTService) VerifyToken(tokenString string) (string, error) {
	opts := []jwt.ParseOption{jwt.WithKey(jwa.HS256, j.secret)}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return "", reedstream.Auth("", "verify_token", err.Error())
	}
	return token.Subject(), nil
}
