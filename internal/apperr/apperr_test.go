package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("lock hours: %w", ErrInsufficientHours.WithDetails(map[string]int64{"available": 1}))

	assert.True(t, errors.Is(err, ErrInsufficientHours))
	assert.False(t, errors.Is(err, ErrBookingOverlap))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[*Error]int{
		Validation("bad"):     http.StatusBadRequest,
		ErrUnauthorized:       http.StatusUnauthorized,
		ErrForbidden:          http.StatusForbidden,
		ErrNotFound:           http.StatusNotFound,
		ErrInsufficientHours:  http.StatusConflict,
		ErrGatewayUnavailable: http.StatusServiceUnavailable,
		Internal("x", nil):    http.StatusInternalServerError,
	}
	for e, want := range cases {
		assert.Equal(t, want, e.HTTPStatus(), e.Code)
	}
}

func TestAs_WrapsUnknownAsInternal(t *testing.T) {
	cause := errors.New("boom")
	e := As(cause)
	require.NotNil(t, e)
	assert.Equal(t, KindInternal, e.Kind)
	assert.ErrorIs(t, e, cause)

	assert.Nil(t, As(nil))
	assert.Same(t, ErrNotFound, As(ErrNotFound))
}

func TestWrap_KeepsSentinelIdentity(t *testing.T) {
	cause := errors.New("pg down")
	err := ErrGatewayUnavailable.Wrap(cause)

	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, ErrGatewayUnavailable.Cause)
}
