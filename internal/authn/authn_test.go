package authn

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvoss-dev/reedcms/internal/security"
)

func TestExtractCredentialsBasic(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	encoded := base64.StdEncoding.EncodeToString([]byte("alice:s3cret"))
	req.Header.Set("Authorization", "Basic "+encoded)

	creds, err := ExtractCredentials(req)
	require.NoError(t, err)
	assert.Equal(t, KindBasic, creds.Kind)
	assert.Equal(t, "alice", creds.Username)
	assert.Equal(t, "s3cret", creds.Password)
}

func TestExtractCredentialsBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc123")

	creds, err := ExtractCredentials(req)
	require.NoError(t, err)
	assert.Equal(t, KindBearer, creds.Kind)
	assert.Equal(t, "abc123", creds.Token)
}

func TestExtractCredentialsMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractCredentials(req)
	assert.Error(t, err)
}

func TestExtractCredentialsUnsupportedScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Digest foo")
	_, err := ExtractCredentials(req)
	assert.Error(t, err)
}

func TestJWTServiceRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret-key-0123456789")
	token, err := svc.IssueToken("user-42", time.Hour)
	require.NoError(t, err)

	subject, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", subject)
}

func TestJWTServiceRejectsWrongSecret(t *testing.T) {
	svc := NewJWTService("secret-a")
	token, err := svc.IssueToken("user-42", time.Hour)
	require.NoError(t, err)

	other := NewJWTService("secret-b")
	_, err = other.VerifyToken(token)
	assert.Error(t, err)
}

func TestJWTServiceIssuerAudience(t *testing.T) {
	svc := NewJWTServiceWithIssuer("secret", "reedcms", "reedcms-api")
	token, err := svc.IssueToken("user-1", time.Hour)
	require.NoError(t, err)

	subject, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestVerifyBasicAgainstArgon2Hash(t *testing.T) {
	hash, err := security.HashPassword("correct horse")
	require.NoError(t, err)

	creds := Credentials{Kind: KindBasic, Username: "alice", Password: "correct horse"}
	err = VerifyBasic(creds, func(u string) (string, bool) {
		return hash, u == "alice"
	})
	assert.NoError(t, err)
}

func TestVerifyBasicRejectsWrongPassword(t *testing.T) {
	hash, err := security.HashPassword("correct horse")
	require.NoError(t, err)

	creds := Credentials{Kind: KindBasic, Username: "alice", Password: "wrong"}
	err = VerifyBasic(creds, func(u string) (string, bool) {
		return hash, true
	})
	assert.Error(t, err)
}

func TestVerifyBasicUnknownUser(t *testing.T) {
	creds := Credentials{Kind: KindBasic, Username: "ghost", Password: "x"}
	err := VerifyBasic(creds, func(u string) (string, bool) {
		return "", false
	})
	assert.Error(t, err)
}
