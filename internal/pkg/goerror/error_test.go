package goerror_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_StatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "server", err: goerror.NewServer(errors.New("boom")), want: http.StatusInternalServerError},
		{name: "invalid input", err: goerror.NewInvalidInput(nil, "title", "is required"), want: http.StatusUnprocessableEntity},
		{name: "invalid format", err: goerror.NewInvalidFormat(), want: http.StatusBadRequest},
		{name: "too many", err: goerror.NewBusiness("slow down", goerror.CodeTooManyRequest), want: http.StatusTooManyRequests},
		{name: "upstream", err: goerror.NewUpstream("push failed", errors.New("fcm down")), want: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ge *goerror.Error
			require.ErrorAs(t, tt.err, &ge)
			assert.Equal(t, tt.want, ge.StatusCode())
		})
	}
}

func TestNewInvalidInput_Fields(t *testing.T) {
	t.Parallel()

	err := goerror.NewInvalidInput(nil, "payloads[3].title", "is required")

	var ge *goerror.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, map[string]string{"payloads[3].title": "is required"}, ge.Fields())
	assert.Equal(t, "Validation error", ge.Msg())

	odd := goerror.NewInvalidInput(nil, "only-key")
	require.ErrorAs(t, odd, &ge)
	assert.Equal(t, goerror.CodeInvalidFormat, ge.Code())
}

func TestNewUpstream_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("provider unavailable")
	err := goerror.NewUpstream("delivery failed on channels: push", cause)

	assert.ErrorIs(t, err, cause)

	var ge *goerror.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "delivery failed on channels: push", ge.Msg())
	assert.Equal(t, "ERROR_CODE_UPSTREAM", ge.Code().String())
}
