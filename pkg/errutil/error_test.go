package errutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHttpError(t *testing.T) {
	t.Run("nil is ok", func(t *testing.T) {
		code, msg := ParseHttpError(nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Empty(t, msg)
	})

	t.Run("coded errors keep their code", func(t *testing.T) {
		code, msg := ParseHttpError(NotFoundError(errors.New("campaign not found")))
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "campaign not found", msg)
	})

	t.Run("wrapped coded errors unwrap", func(t *testing.T) {
		wrapped := fmt.Errorf("outer: %w", ConflictError(errors.New("busy")))
		code, _ := ParseHttpError(wrapped)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("plain errors become 500", func(t *testing.T) {
		code, msg := ParseHttpError(errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "boom", msg)
	})
}

func TestQuotaExceededError(t *testing.T) {
	err := QuotaExceededError("campaigns", 5, 5)

	code, msg := ParseHttpError(err)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Contains(t, msg, "campaigns quota exceeded")

	quotaErr := new(QuotaExceeded)
	assert.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, uint64(5), quotaErr.Limit)
}
