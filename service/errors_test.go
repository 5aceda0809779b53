package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err       error
		kind      ErrorKind
		retryable bool
	}{
		{err: invalidInput("bad cost"), kind: KindValidation},
		{err: ErrRewardExists, kind: KindValidation},
		{err: ErrNotAuthorized, kind: KindValidation},
		{err: ErrUserBanned, kind: KindValidation},
		{err: fmt.Errorf("%w: have 1, need 2", ErrInsufficientPoints), kind: KindInsufficientResource, retryable: true},
		{err: ErrOutOfStock, kind: KindInsufficientResource, retryable: true},
		{err: ErrUserNotFound, kind: KindNotFound},
		{err: ErrRewardNotFound, kind: KindNotFound},
		{err: fmt.Errorf("%w: %w", ErrMembershipUnavailable, context.DeadlineExceeded), kind: KindExternalUnavailable, retryable: true},
		{err: errors.New("connection refused"), kind: KindStorageFailure, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}
