package appErrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/unclebandit/isp-broadcast/internal/errors"
)

func TestRemoteErrorRateLimitDetection(t *testing.T) {
	tests := []struct {
		name string
		err  *appErrors.RemoteError
		want bool
	}{
		{"message substring", &appErrors.RemoteError{StatusCode: 400, Message: "Too many requests, please slow down"}, true},
		{"status 429", &appErrors.RemoteError{StatusCode: http.StatusTooManyRequests, Message: "slow down"}, true},
		{"other rejection", &appErrors.RemoteError{StatusCode: 500, Message: "gateway down"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("fetch history: %w", tt.err)
			assert.Equal(t, tt.want, errors.Is(wrapped, appErrors.ErrRateLimited))
			assert.True(t, appErrors.IsRemote(wrapped))
		})
	}
}

func TestValidationErrorUnwraps(t *testing.T) {
	err := appErrors.NewValidation("scheduledAt", appErrors.ErrScheduleTooSoon)
	assert.True(t, errors.Is(err, appErrors.ErrScheduleTooSoon))
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, "scheduledAt: "+appErrors.ErrScheduleTooSoon.Error(), err.Error())
}
