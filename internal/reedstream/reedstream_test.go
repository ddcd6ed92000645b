package reedstream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestCarriesRequestID(t *testing.T) {
	req := NewRequest("page.title@de@live")
	assert.NotEmpty(t, req.RequestID())
	assert.Equal(t, "page.title@de@live", req.Key)
}

func TestRequestIDEmptyWithoutContext(t *testing.T) {
	var req Request
	assert.Empty(t, req.RequestID())
}

func TestNewResponseStampsTimestamp(t *testing.T) {
	resp := NewResponse("value", "cache", true)
	assert.Equal(t, "value", resp.Data)
	assert.Equal(t, "cache", resp.Source)
	assert.True(t, resp.Cached)
	assert.Greater(t, resp.Timestamp, int64(0))
}

func TestErrorKindStrings(t *testing.T) {
	cases := map[Kind]string{
		KindNotFound:         "NotFound",
		KindValidationError:  "ValidationError",
		KindIoError:          "IoError",
		KindCsvError:         "CsvError",
		KindAuthError:        "AuthError",
		KindConfigError:      "ConfigError",
		KindTemplateError:    "TemplateError",
		KindServerError:      "ServerError",
		KindInvalidCommand:   "InvalidCommand",
		KindParseError:       "ParseError",
		KindCompressionError: "CompressionError",
		KindSecurityError:    "SecurityError",
		KindBuildError:       "BuildError",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}

func TestNotFoundWithContext(t *testing.T) {
	err := NotFound("page.title@de@live").WithContext("fallback chain exhausted")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page.title@de@live")
	assert.Contains(t, err.Error(), "fallback chain exhausted")
	assert.Equal(t, KindNotFound, err.Kind)
}

func TestWithContextIgnoredForNonNotFound(t *testing.T) {
	err := Validation("term", "news:sports", "no colon allowed").WithContext("should be ignored")
	assert.Empty(t, err.Context)
}

func TestIOErrorUnwraps(t *testing.T) {
	inner := errors.New("permission denied")
	err := IOError("write", "/data/file.csv", inner)
	assert.ErrorIs(t, err, inner)
}

func TestAsReedError(t *testing.T) {
	err := Server("assets", "bundle rebuild failed")
	re, ok := AsReedError(err)
	require.True(t, ok)
	assert.Equal(t, KindServerError, re.Kind)

	_, ok = AsReedError(errors.New("plain error"))
	assert.False(t, ok)
}
