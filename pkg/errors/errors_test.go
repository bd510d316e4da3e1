package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[*AppError]int{
		NotFound("dog", nil):              http.StatusNotFound,
		BadRequest("invalid dog id", nil): http.StatusBadRequest,
		Unauthorized(nil):                 http.StatusUnauthorized,
		Forbidden("denied", nil):          http.StatusForbidden,
		NotImplemented("edit user"):       http.StatusNotImplemented,
		Unavailable("upstream", nil):      http.StatusServiceUnavailable,
		Internal(fmt.Errorf("x")):         http.StatusInternalServerError,
	}
	for appErr, want := range cases {
		assert.Equal(t, want, appErr.HTTPStatus(), appErr.Message)
	}
}

func TestAsUnwrapsChains(t *testing.T) {
	inner := fmt.Errorf("no rows")
	wrapped := fmt.Errorf("failed to get dog: %w", NotFound("dog", inner))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrNotFound, appErr.Code)
	assert.Equal(t, "dog not found: no rows", appErr.Error())
	assert.ErrorIs(t, wrapped, inner)
}
