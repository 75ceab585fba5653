package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeForStatus(t *testing.T) {
	cases := map[int]ErrorType{
		401: ErrorTypeAuth,
		403: ErrorTypeAuth,
		404: ErrorTypeNotFound,
		429: ErrorTypeRateLimit,
		500: ErrorTypeServerError,
		503: ErrorTypeServerError,
		418: ErrorTypeUnknown,
	}
	for code, want := range cases {
		assert.Equal(t, want, TypeForStatus(code), "status %d", code)
	}
}

func TestRetryability(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeNotFound))
	assert.False(t, IsRetryable(ErrorTypeStructure))

	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(502))
	assert.False(t, IsRetryableStatusCode(404))
}

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeNotFound, 404, "page %d missing", 3)
	assert.Equal(t, "not_found error (code 404): page 3 missing", err.Error())
}
