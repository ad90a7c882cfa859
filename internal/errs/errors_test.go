package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	assert.Equal(t, "[connection_failed] ping failed: dial tcp: connection refused",
		Wrap(ErrKindConnectionFailed, "ping failed", cause).Error())
	assert.Equal(t, "[configuration] datasource \"first\" is not configured",
		Newf(ErrKindConfiguration, "datasource %q is not configured", "first").Error())
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	err := Wrap(ErrKindTimeout, "query failed", context.DeadlineExceeded)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsTimeout(fmt.Errorf("first: %w", err)))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		query      bool
		config     bool
		kindString string
	}{
		{"connection", New(ErrKindConnectionFailed, "x"), true, false, "connection_failed"},
		{"timeout", New(ErrKindTimeout, "x"), true, false, "timeout"},
		{"query", New(ErrKindQueryFailed, "x"), true, false, "query_failed"},
		{"configuration", Configuration("x", nil), false, true, "configuration"},
		{"not found", New(ErrKindNotFound, "x"), false, false, "not_found"},
		{"plain error", errors.New("x"), false, false, "unknown"},
		{"nil", nil, false, false, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.query, IsQueryError(tt.err))
			assert.Equal(t, tt.config, IsConfiguration(tt.err))
			assert.Equal(t, tt.kindString, KindOf(tt.err).String())
		})
	}
}
