package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageStatus_String(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status StageStatus
		want   string
	}{
		"pending":     {status: StagePending, want: "pending"},
		"in progress": {status: StageInProgress, want: "in_progress"},
		"completed":   {status: StageCompleted, want: "completed"},
		"failed":      {status: StageFailed, want: "failed"},
		"out of range": {
			status: StageStatus(99),
			want:   "unknown",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.status.String())
		})
	}
}

func TestStageInfo_Validate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		info    StageInfo
		wantErr string
	}{
		"valid": {
			info: StageInfo{Name: "resolve", Number: 3, TotalStages: 6},
		},
		"empty name": {
			info:    StageInfo{Number: 1, TotalStages: 6},
			wantErr: "stage name cannot be empty",
		},
		"zero number": {
			info:    StageInfo{Name: "load", Number: 0, TotalStages: 6},
			wantErr: "stage number must be > 0",
		},
		"zero total": {
			info:    StageInfo{Name: "load", Number: 1, TotalStages: 0},
			wantErr: "total stages must be > 0",
		},
		"number beyond total": {
			info:    StageInfo{Name: "verify", Number: 7, TotalStages: 6},
			wantErr: "stage number cannot exceed total stages",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.info.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
