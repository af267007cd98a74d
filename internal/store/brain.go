package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"hindsight/internal/detect"
)

const (
	defaultSuccessRate = 50.0
	tagBoost           = 1.5
	popularBoost       = 1.2
	popularUses        = 10
	minBrainToken      = 3
)

// Brain is the community knowledge base of fixes.
type Brain struct {
	db  *sql.DB
	now func() time.Time
}

const upsertBrainSQL = `INSERT INTO community_brain
    (command, error_pattern, context_tags, success_count, fail_count, provenance, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(command, error_pattern) DO UPDATE SET
        success_count = success_count + excluded.success_count,
        fail_count    = fail_count + excluded.fail_count`

// Insert adds e, or on an existing (command, error_pattern) adds e's counters
// to the stored ones.
func (b *Brain) Insert(ctx context.Context, e BrainEntry) error {
	_, err := b.db.ExecContext(ctx, upsertBrainSQL, b.brainArgs(e)...)
	if err != nil {
		return fmt.Errorf("insert fix: %w", err)
	}
	return nil
}

// InsertBatch upserts entries in one transaction.
func (b *Brain) InsertBatch(ctx context.Context, entries []BrainEntry) (int, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertBrainSQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, e := range entries {
		if strings.TrimSpace(e.Command) == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, b.brainArgs(e)...); err != nil {
			return 0, fmt.Errorf("insert fix %q: %w", e.Command, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func (b *Brain) brainArgs(e BrainEntry) []any {
	created := e.CreatedAt
	if created == 0 {
		created = b.now().Unix()
	}
	prov := e.Provenance
	if prov == "" {
		prov = ProvenanceUser
	}
	return []any{e.Command, e.ErrorPattern, e.ContextTags, e.SuccessCount, e.FailCount, prov, created}
}

// LogSuccess records one successful use of command for errorPattern,
// creating the row when needed.
func (b *Brain) LogSuccess(ctx context.Context, command, errorPattern, contextTags string) error {
	return b.Insert(ctx, BrainEntry{
		Command:      command,
		ErrorPattern: errorPattern,
		ContextTags:  contextTags,
		SuccessCount: 1,
		Provenance:   ProvenanceUser,
	})
}

// LogFailure records one failed use of an existing fix. Unknown pairs are
// ignored.
func (b *Brain) LogFailure(ctx context.Context, command, errorPattern string) error {
	_, err := b.db.ExecContext(ctx,
		"UPDATE community_brain SET fail_count = fail_count + 1 WHERE command = ? AND error_pattern = ?",
		command, errorPattern,
	)
	if err != nil {
		return fmt.Errorf("log failure: %w", err)
	}
	return nil
}

// Get returns the row for (command, errorPattern).
func (b *Brain) Get(ctx context.Context, command, errorPattern string) (BrainEntry, bool, error) {
	var e BrainEntry
	err := b.db.QueryRowContext(ctx, `
		SELECT id, command, error_pattern, context_tags, success_count, fail_count, provenance, created_at
		FROM community_brain WHERE command = ? AND error_pattern = ?`,
		command, errorPattern,
	).Scan(&e.ID, &e.Command, &e.ErrorPattern, &e.ContextTags, &e.SuccessCount, &e.FailCount, &e.Provenance, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BrainEntry{}, false, nil
	}
	if err != nil {
		return BrainEntry{}, false, err
	}
	return e, true, nil
}

// SearchWithScores finds fixes whose command, error pattern or tags match
// any token of query. Rows sharing tags with contextTags and rows with more
// than ten recorded uses score higher. Results are ordered by score.
func (b *Brain) SearchWithScores(ctx context.Context, query string, contextTags []string, limit int) ([]BrainResult, error) {
	match := brainMatch(query)
	if match == "" {
		return nil, nil
	}
	rows, err := b.db.QueryContext(ctx, `
		SELECT community_brain.command, community_brain.error_pattern, community_brain.context_tags,
		       community_brain.success_count, community_brain.fail_count
		FROM community_brain
		JOIN community_brain_fts ON community_brain.id = community_brain_fts.rowid
		WHERE community_brain_fts MATCH ?
		ORDER BY community_brain.success_count DESC, community_brain.created_at DESC
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search fixes: %w", err)
	}
	defer rows.Close()

	var out []BrainResult
	for rows.Next() {
		var r BrainResult
		if err := rows.Scan(&r.Command, &r.ErrorPattern, &r.ContextTags, &r.SuccessCount, &r.FailCount); err != nil {
			return nil, err
		}
		r.SuccessRate = successRate(r.SuccessCount, r.FailCount)
		r.Score = scoreFix(r, contextTags)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// scoreFix compares whole tags, so a "java" filter does not boost a row
// tagged "javascript".
func scoreFix(r BrainResult, contextTags []string) float64 {
	score := r.SuccessRate
	rowTags := detect.Parse(r.ContextTags)
	for _, tag := range contextTags {
		if rowTags.Has(strings.TrimSpace(tag)) {
			score *= tagBoost
		}
	}
	if r.Uses() > popularUses {
		score *= popularBoost
	}
	return score
}

// Count returns the number of stored fixes.
func (b *Brain) Count(ctx context.Context) (int64, error) {
	var n int64
	err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM community_brain").Scan(&n)
	return n, err
}

// brainMatch keeps tokens longer than two characters made only of letters,
// digits, '-' and '_', quoted and joined with OR.
func brainMatch(query string) string {
	var terms []string
	for _, tok := range strings.Fields(query) {
		if len(tok) < minBrainToken || strings.ContainsFunc(tok, notBrainRune) {
			continue
		}
		terms = append(terms, `"`+tok+`"`)
	}
	return strings.Join(terms, " OR ")
}

func notBrainRune(r rune) bool {
	return !(isWordRune(r) || r == '-' || r == '_')
}
