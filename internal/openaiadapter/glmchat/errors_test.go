package glmchat

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsErrorResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantType   string
		wantStatus int
	}{
		{
			"StatusUnauthorized",
			&UpstreamStatusError{StatusCode: http.StatusUnauthorized, Body: "bad token"},
			"authentication_error",
			http.StatusUnauthorized,
		},
		{
			"StatusForbidden",
			&UpstreamStatusError{StatusCode: http.StatusForbidden},
			"permission_denied",
			http.StatusForbidden,
		},
		{
			"StatusRateLimited",
			&UpstreamStatusError{StatusCode: http.StatusTooManyRequests},
			"rate_limit_error",
			http.StatusTooManyRequests,
		},
		{
			"StatusBadRequest",
			&UpstreamStatusError{StatusCode: http.StatusBadRequest},
			"invalid_request_error",
			http.StatusBadRequest,
		},
		{
			"StatusUnmapped",
			&UpstreamStatusError{StatusCode: http.StatusBadGateway},
			"api_error",
			http.StatusInternalServerError,
		},
		{
			"CallFailure",
			&UpstreamCallError{Err: errors.New("dial tcp: refused")},
			"api_error",
			http.StatusInternalServerError,
		},
		{
			"UnknownError",
			errors.New("something else"),
			"server_error",
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := AsErrorResponse(tt.err)
			require.NotNil(t, resp)
			require.NotNil(t, resp.Err)
			assert.Equal(t, tt.wantType, resp.Err.Type)
			assert.NotEmpty(t, resp.Err.Message)
			assert.Equal(t, tt.wantStatus, resp.HTTPStatus())
		})
	}

	assert.Nil(t, AsErrorResponse(nil))
}

func TestUpstreamErrorsUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("root cause")
	err := &UpstreamCallError{Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "root cause")

	statusErr := &UpstreamStatusError{StatusCode: 503, Body: "unavailable"}
	assert.Contains(t, statusErr.Error(), "503")
	assert.Contains(t, statusErr.Error(), "unavailable")

	bare := &UpstreamStatusError{StatusCode: 500}
	assert.Equal(t, "upstream returned status 500", bare.Error())
}
