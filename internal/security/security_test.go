package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("MyP@ssw0rd")
	require.NoError(t, err)
	assert.True(t, IsArgon2Hash(hash))

	ok, err := VerifyPassword("MyP@ssw0rd", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("")
	require.Error(t, err)
}

func TestLegacyBcryptRoundTrip(t *testing.T) {
	hash, err := LegacyBcryptHash("OldSchool1!")
	require.NoError(t, err)
	assert.False(t, IsArgon2Hash(hash))
	assert.True(t, LegacyBcryptVerify("OldSchool1!", hash))
	assert.False(t, LegacyBcryptVerify("wrong", hash))
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission("text[rw-]")
	require.NoError(t, err)
	assert.Equal(t, Permission{Resource: "text", Read: true, Write: true, Execute: false}, p)
	assert.Equal(t, "text[rw-]", p.String())

	_, err = ParsePermission("bad")
	require.Error(t, err)
}

func TestPermissionMatchesResource(t *testing.T) {
	wildcard := Permission{Resource: "*"}
	assert.True(t, wildcard.MatchesResource("anything"))

	hierarchical := Permission{Resource: "content/blog/*"}
	assert.True(t, hierarchical.MatchesResource("content/blog/post1"))
	assert.False(t, hierarchical.MatchesResource("content/news/post1"))
}

func TestParsePermissions(t *testing.T) {
	perms, err := ParsePermissions("text[rwx],route[rw-],*[r--]")
	require.NoError(t, err)
	require.Len(t, perms, 3)
	assert.Equal(t, "text[rwx],route[rw-],*[r--]", FormatPermissions(perms))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.Error(t, ValidateEmail("invalid.email"))
	assert.Error(t, ValidateEmail("@example.com"))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("admin"))
	assert.NoError(t, ValidateUsername("user_123"))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("123user"))
	assert.Error(t, ValidateUsername("trailing_"))
}

func TestCheckPasswordStrength(t *testing.T) {
	assert.NoError(t, CheckPasswordStrength("short123", false))
	assert.Error(t, CheckPasswordStrength("short", false))
	assert.NoError(t, CheckPasswordStrength("Str0ng!Pass", true))
	assert.Error(t, CheckPasswordStrength("weakpass", true))
}
