package store

import "strings"

// Provenance values for knowledge base rows.
const (
	ProvenanceUser = "user"
	ProvenanceSeed = "seed"
)

// HistoryEntry is one executed command.
type HistoryEntry struct {
	Command    string
	WorkingDir string
	ExitCode   *int
	Timestamp  int64 // epoch seconds
}

// Normalize returns the grouping key of a command.
func Normalize(command string) string {
	return strings.ToLower(strings.TrimSpace(command))
}

// CommandScore is a grouped history match with its relevance scores.
type CommandScore struct {
	Command        string
	Timestamp      int64
	Frequency      int64
	RecencyScore   float64
	FrequencyScore float64
	CombinedScore  float64
}

// BrainEntry is one community fix.
type BrainEntry struct {
	ID           int64
	Command      string
	ErrorPattern string
	ContextTags  string // comma-joined
	SuccessCount int64
	FailCount    int64
	Provenance   string
	CreatedAt    int64 // epoch seconds; zero means now
}

// Uses is the number of recorded outcomes.
func (e BrainEntry) Uses() int64 { return e.SuccessCount + e.FailCount }

// SuccessRate is the percentage of successful outcomes, 50 when none are
// recorded yet.
func (e BrainEntry) SuccessRate() float64 {
	return successRate(e.SuccessCount, e.FailCount)
}

func successRate(success, fail int64) float64 {
	total := success + fail
	if total == 0 {
		return defaultSuccessRate
	}
	return float64(success) / float64(total) * 100
}

// BrainResult is a scored knowledge base match.
type BrainResult struct {
	Command      string
	ErrorPattern string
	ContextTags  string
	SuccessCount int64
	FailCount    int64
	SuccessRate  float64
	Score        float64
}

// Uses is the number of recorded outcomes.
func (r BrainResult) Uses() int64 { return r.SuccessCount + r.FailCount }
