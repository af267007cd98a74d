package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
)

const (
	recencyFloor     = 0.1
	recencyDay       = 24 * time.Hour
	recencyMonth     = 30 * 24 * time.Hour
	frequencyCeiling = 100

	recencyWeight   = 0.6
	frequencyWeight = 0.4
)

// History is the local log of executed commands.
type History struct {
	db  *sql.DB
	now func() time.Time
}

// Insert records one command. Re-inserting the same (command, working_dir,
// timestamp) is a no-op.
func (h *History) Insert(ctx context.Context, e HistoryEntry) error {
	_, err := h.db.ExecContext(ctx, insertHistorySQL, historyArgs(e)...)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// InsertBatch records entries in one transaction and returns how many were
// new.
func (h *History) InsertBatch(ctx context.Context, entries []HistoryEntry) (int, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertHistorySQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range entries {
		if strings.TrimSpace(e.Command) == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx, historyArgs(e)...)
		if err != nil {
			return 0, fmt.Errorf("insert history: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

const insertHistorySQL = `INSERT OR IGNORE INTO command_history
    (command, working_dir, exit_code, timestamp, command_normalized)
    VALUES (?, ?, ?, ?, ?)`

func historyArgs(e HistoryEntry) []any {
	var exit any
	if e.ExitCode != nil {
		exit = *e.ExitCode
	}
	return []any{e.Command, e.WorkingDir, exit, e.Timestamp, Normalize(e.Command)}
}

// Search returns the raw commands matching any query token, newest first.
func (h *History) Search(ctx context.Context, query string, limit int) ([]string, error) {
	match := historyMatch(query)
	if match == "" {
		return nil, nil
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT command_history.command
		FROM command_history
		JOIN command_fts ON command_history.id = command_fts.rowid
		WHERE command_fts MATCH ?
		ORDER BY command_history.timestamp DESC
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var cmd string
		if err := rows.Scan(&cmd); err != nil {
			return nil, err
		}
		out = append(out, cmd)
	}
	return out, rows.Err()
}

// SearchScored groups matches by normalized command and scores each group
// by recency and frequency. Results are ordered by combined score.
func (h *History) SearchScored(ctx context.Context, query string, limit int) ([]CommandScore, error) {
	match := historyMatch(query)
	if match == "" {
		return nil, nil
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT command_history.command, MAX(command_history.timestamp) AS ts, COUNT(*) AS frequency
		FROM command_history
		JOIN command_fts ON command_history.id = command_fts.rowid
		WHERE command_fts MATCH ?
		GROUP BY command_history.command_normalized
		ORDER BY ts DESC
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	defer rows.Close()

	now := h.now()
	var out []CommandScore
	for rows.Next() {
		var cs CommandScore
		if err := rows.Scan(&cs.Command, &cs.Timestamp, &cs.Frequency); err != nil {
			return nil, err
		}
		age := now.Sub(time.Unix(cs.Timestamp, 0))
		cs.RecencyScore = RecencyScore(age)
		cs.FrequencyScore = FrequencyScore(cs.Frequency)
		cs.CombinedScore = CombinedScore(cs.RecencyScore, cs.FrequencyScore)
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CombinedScore > out[j].CombinedScore
	})
	return out, nil
}

// Count returns the number of recorded commands.
func (h *History) Count(ctx context.Context) (int64, error) {
	var n int64
	err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM command_history").Scan(&n)
	return n, err
}

// RecencyScore decays from 1.0 to 0.5 over the first day, then to the 0.1
// floor over the following 30 days.
func RecencyScore(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	var s float64
	if age < recencyDay {
		s = 1 - float64(age)/float64(recencyDay)*0.5
	} else {
		s = 0.5 - float64(age-recencyDay)/float64(recencyMonth)*0.4
	}
	return max(s, recencyFloor)
}

// FrequencyScore maps a use count onto [0.1, 1.0], saturating at 100 uses.
func FrequencyScore(freq int64) float64 {
	s := float64(min(freq, frequencyCeiling)) / frequencyCeiling
	return min(max(s, 0.1), 1.0)
}

// CombinedScore weights recency over frequency.
func CombinedScore(recency, frequency float64) float64 {
	return recencyWeight*recency + frequencyWeight*frequency
}

// historyMatch builds an FTS5 OR query from the whitespace tokens of query.
// Quotes are stripped and each token is quoted so FTS operators in user
// input stay literal.
func historyMatch(query string) string {
	var terms []string
	for _, tok := range strings.Fields(query) {
		tok = strings.NewReplacer(`"`, "", "'", "").Replace(tok)
		if !strings.ContainsFunc(tok, isWordRune) {
			continue
		}
		terms = append(terms, `"`+tok+`"`)
	}
	return strings.Join(terms, " OR ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
