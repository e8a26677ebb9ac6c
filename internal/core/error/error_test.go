package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapRedis(t *testing.T) {
	assert.Nil(t, WrapRedis(nil))

	err := WrapRedis(redis.Nil)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.True(t, errors.Is(err, redis.Nil))

	err = WrapRedis(errors.New("dial tcp: refused"))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Equal(t, RedisErrorMessage+": dial tcp: refused", err.Error())
}

func TestWrappersKeepCause(t *testing.T) {
	cause := errors.New("boom")
	cases := []struct {
		wrap   func(error) error
		status int
		msg    string
	}{
		{WrapBackend, http.StatusBadGateway, BackendErrorMessage},
		{WrapNLU, http.StatusBadGateway, NLUErrorMessage},
		{WrapTransport, http.StatusServiceUnavailable, TransportErrorMessage},
	}
	for _, tc := range cases {
		assert.Nil(t, tc.wrap(nil))
		err := tc.wrap(cause)
		require.ErrorIs(t, err, cause)
		assert.Equal(t, tc.status, StatusOf(err))

		var appErr *AppError
		require.ErrorAs(t, fmt.Errorf("outer: %w", err), &appErr)
		assert.Equal(t, tc.msg, appErr.Message)
	}
}

func TestStatusOf_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("x")))
	assert.Equal(t, SystemErrorMessage, New(nil, 500, SystemErrorMessage).Error())
}
