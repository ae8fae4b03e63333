package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want int
	}{
		"nil error":         {err: nil, want: ExitSuccess},
		"compile failure":   {err: NewExitError(ExitCompileFailed), want: ExitCompileFailed},
		"mismatch":          {err: NewExitError(ExitMismatch), want: ExitMismatch},
		"invalid arguments": {err: NewExitError(ExitInvalidArguments), want: ExitInvalidArguments},
		"plain error":       {err: errors.New("boom"), want: ExitCompileFailed},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	t.Parallel()

	assert.EqualError(t, NewExitError(ExitMismatch), "exit code 2")
}
