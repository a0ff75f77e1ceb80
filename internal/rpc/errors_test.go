package rpc

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("get_logs: %w", context.DeadlineExceeded), true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"rate limited", errors.New("429 Too Many Requests"), true},
		{"bad gateway", errors.New("502 bad gateway"), true},
		{"service unavailable", errors.New("service unavailable"), true},
		{"timeout string", errors.New("i/o timeout"), true},
		{"json decode", errors.New("invalid character '<' looking for beginning of value"), false},
		{"unknown method", errors.New("the method eth_getLogs does not exist"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}
