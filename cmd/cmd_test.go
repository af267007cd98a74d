package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hindsight/internal/resolve"
)

func TestOutcomeCacheTakeOnce(t *testing.T) {
	c := newOutcomeCache(4)
	c.put(resolve.Outcome{ID: "a", Stage: resolve.StageRule, Command: "npm install"})

	o, ok := c.take("a")
	require.True(t, ok)
	assert.Equal(t, "npm install", o.Command)

	_, ok = c.take("a")
	assert.False(t, ok, "feedback is accepted once per outcome")
}

func TestOutcomeCacheEvictsOldest(t *testing.T) {
	c := newOutcomeCache(2)
	for i := 0; i < 3; i++ {
		c.put(resolve.Outcome{ID: fmt.Sprint(i)})
	}

	_, ok := c.take("0")
	assert.False(t, ok)
	_, ok = c.take("1")
	assert.True(t, ok)
	_, ok = c.take("2")
	assert.True(t, ok)
}

func TestPromptYesNo(t *testing.T) {
	tests := []struct {
		input  string
		worked bool
		ok     bool
	}{
		{"y\n", true, true},
		{"YES\n", true, true},
		{"n\n", false, true},
		{"s\n", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			worked, ok := promptYesNo(strings.NewReader(tt.input), &out, "? ")
			assert.Equal(t, tt.worked, worked)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, "? ", out.String())
		})
	}
}

func TestFormatOutcomeNotFoundNamesLayers(t *testing.T) {
	out := formatOutcome(resolve.Outcome{
		ID:        "x",
		Stage:     resolve.StageNone,
		Attempted: []resolve.Stage{resolve.StageRule, resolve.StageCommunity},
	})
	assert.Contains(t, out, "No fix found. Tried: rule, community.")
	assert.NotContains(t, out, "outcome_id")
}

func TestFormatOutcomeCommunity(t *testing.T) {
	out := formatOutcome(resolve.Outcome{
		ID:          "abc",
		Stage:       resolve.StageCommunity,
		Command:     "docker system prune -a",
		SuccessRate: 95,
		Uses:        20,
		Alternates:  []resolve.Alternate{{Command: "df -h", SuccessRate: 80, Uses: 20}},
	})
	assert.Contains(t, out, "docker system prune -a")
	assert.Contains(t, out, "95% over 20 uses")
	assert.Contains(t, out, "`df -h` (80% success, 20 uses)")
	assert.Contains(t, out, "**outcome_id:** abc")
}

func TestFormatRecall(t *testing.T) {
	out := formatRecall(resolve.RecallResult{
		Query: "docker",
		Tags:  []string{"docker"},
		Candidates: []resolve.Candidate{
			{Command: "docker compose up", Score: 1.5, Source: resolve.SourceHistory, Frequency: 3, Boosted: true},
			{Command: "docker system prune -a", Score: 0.75, Source: resolve.SourceCommunity, SuccessRate: 95},
		},
		Warnings: []string{"history search failed"},
	})
	assert.Contains(t, out, "1. `docker compose up` (1.50 history, used 3x, context match)")
	assert.Contains(t, out, "2. `docker system prune -a` (0.75 community, 95% success)")
	assert.Contains(t, out, "warning: history search failed")
}

func TestStageList(t *testing.T) {
	assert.Equal(t, "nothing", stageList(nil))
	assert.Equal(t, "rule, community, model",
		stageList([]resolve.Stage{resolve.StageRule, resolve.StageCommunity, resolve.StageModel}))
}
