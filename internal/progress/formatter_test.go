package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatStageCounter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[1/6]", formatStageCounter(1, 6))
	assert.Equal(t, "[6/6]", formatStageCounter(6, 6))
}

func TestBuildStageMessage(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		stage  StageInfo
		action string
		want   string
	}{
		"running resolve": {
			stage:  StageInfo{Name: "resolve", Number: 3, TotalStages: 6},
			action: "Running",
			want:   "[3/6] Running Resolve stage",
		},
		"completed verify": {
			stage:  StageInfo{Name: "verify", Number: 6, TotalStages: 6},
			action: "Completed",
			want:   "[6/6] Completed Verify stage",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, buildStageMessage(tc.stage, tc.action))
		})
	}
}

func TestSymbols(t *testing.T) {
	t.Parallel()

	unicode := ProgressSymbols{Checkmark: "✓", Failure: "✗"}
	ascii := ProgressSymbols{Checkmark: "[OK]", Failure: "[FAIL]"}

	assert.Equal(t, "\033[32m✓\033[0m", checkmark(unicode, true))
	assert.Equal(t, "✓", checkmark(unicode, false))
	assert.Equal(t, "[OK]", checkmark(ascii, true))

	assert.Equal(t, "\033[31m✗\033[0m", failureMark(unicode, true))
	assert.Equal(t, "✗", failureMark(unicode, false))
	assert.Equal(t, "[FAIL]", failureMark(ascii, true))
}
