package resolve

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hindsight/internal/detect"
	"hindsight/internal/store"
)

// communityBaseline is the base score of a knowledge base match in recall.
const communityBaseline = 0.75

// Source names where a recall candidate came from.
type Source string

const (
	SourceHistory   Source = "history"
	SourceCommunity Source = "community"
)

// Candidate is one ranked recall result.
type Candidate struct {
	Command     string  `json:"command"`
	Score       float64 `json:"score"`
	Source      Source  `json:"source"`
	Boosted     bool    `json:"boosted,omitempty"`
	Frequency   int64   `json:"frequency,omitempty"`
	SuccessRate float64 `json:"success_rate,omitempty"`
}

// RecallResult holds ranked candidates and the context they were ranked in.
type RecallResult struct {
	Query      string      `json:"query"`
	Tags       []string    `json:"tags,omitempty"`
	Candidates []Candidate `json:"candidates"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// Recall searches history and the knowledge base concurrently, boosts
// candidates matching the project context of dir, drops duplicate commands
// keeping the best score and returns the top results.
func (r *Resolver) Recall(ctx context.Context, dir, query string) RecallResult {
	pctx := r.detect(dir)
	res := RecallResult{Query: query, Tags: pctx.Tags()}

	var (
		history   []store.CommandScore
		community []store.BrainResult
		histErr   error
		kbErr     error
	)
	g, gctx := errgroup.WithContext(ctx)
	if r.history != nil {
		g.Go(func() error {
			history, histErr = r.history.SearchScored(gctx, query, r.recallLimit)
			return nil
		})
	}
	if r.kb != nil {
		g.Go(func() error {
			community, kbErr = r.kb.SearchWithScores(gctx, query, res.Tags, r.recallLimit)
			return nil
		})
	}
	_ = g.Wait()

	if histErr != nil {
		r.log.Warn("history search failed", zap.Error(histErr))
		res.Warnings = append(res.Warnings, "history unavailable: "+histErr.Error())
		history = nil
	}
	if kbErr != nil {
		r.log.Warn("knowledge base search failed", zap.Error(kbErr))
		res.Warnings = append(res.Warnings, "knowledge base unavailable: "+kbErr.Error())
		community = nil
	}

	candidates := make([]Candidate, 0, len(history)+len(community))
	for _, h := range history {
		candidates = append(candidates, boosted(pctx, Candidate{
			Command:   h.Command,
			Score:     h.CombinedScore,
			Source:    SourceHistory,
			Frequency: h.Frequency,
		}))
	}
	for _, c := range community {
		candidates = append(candidates, boosted(pctx, Candidate{
			Command:     c.Command,
			Score:       communityBaseline,
			Source:      SourceCommunity,
			SuccessRate: c.SuccessRate,
		}))
	}

	res.Candidates = Merge(candidates, r.recallLimit)
	return res
}

func boosted(pctx detect.Context, c Candidate) Candidate {
	m := pctx.Boost(c.Command)
	c.Score *= m
	c.Boosted = m != detect.NeutralBoost
	return c
}

// Merge drops candidates whose exact command text was already seen with a
// higher score, sorts by score descending and keeps at most limit.
func Merge(candidates []Candidate, limit int) []Candidate {
	best := make(map[string]int)
	var merged []Candidate
	for _, c := range candidates {
		if i, ok := best[c.Command]; ok {
			if c.Score > merged[i].Score {
				merged[i] = c
			}
			continue
		}
		best[c.Command] = len(merged)
		merged = append(merged, c)
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
