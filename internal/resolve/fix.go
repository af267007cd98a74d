package resolve

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"hindsight/internal/llm"
)

// Stage names a fix layer.
type Stage string

const (
	StageRule      Stage = "rule"
	StageCommunity Stage = "community"
	StageModel     Stage = "model"
	StageNone      Stage = "none"
)

const maxSalientTokens = 5

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "not": true, "was": true,
	"error": true, "found": true, "command": true, "no": true,
	"such": true, "file": true, "cannot": true,
}

// Alternate is a lower-ranked knowledge base fix.
type Alternate struct {
	Command     string  `json:"command"`
	SuccessRate float64 `json:"success_rate"`
	Uses        int64   `json:"uses"`
}

// Outcome is the result of a fix request. Stage is StageNone when no layer
// produced a command; Attempted then lists the layers that were tried.
type Outcome struct {
	ID          string      `json:"id"`
	ErrorText   string      `json:"-"`
	Stage       Stage       `json:"stage"`
	Command     string      `json:"command,omitempty"`
	Confidence  float64     `json:"confidence,omitempty"`
	SuccessRate float64     `json:"success_rate,omitempty"`
	Uses        int64       `json:"uses,omitempty"`
	Rule        string      `json:"rule,omitempty"`
	Explanation string      `json:"explanation,omitempty"`
	Unverified  bool        `json:"unverified,omitempty"`
	Alternates  []Alternate `json:"alternates,omitempty"`
	Attempted   []Stage     `json:"attempted"`
	Warnings    []string    `json:"warnings,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// Found reports whether a command was produced.
func (o Outcome) Found() bool { return o.Stage != StageNone && o.Command != "" }

// Fix resolves errText observed in dir. It never fails: every layer that
// errors contributes nothing and the next one is tried.
func (r *Resolver) Fix(ctx context.Context, dir, errText string) Outcome {
	pctx := r.detect(dir)
	out := Outcome{
		ID:        r.newID(),
		ErrorText: errText,
		Stage:     StageNone,
		Tags:      pctx.Tags(),
	}

	out.Attempted = append(out.Attempted, StageRule)
	if r.rules != nil {
		if m, ok := r.rules.Apply(errText); ok {
			out.Stage = StageRule
			out.Rule = m.Rule
			out.Command = m.Command
			out.Confidence = m.Confidence
			out.Explanation = m.Explanation
			r.log.Debug("rule matched", zap.String("rule", m.Rule))
			return out
		}
	}

	out.Attempted = append(out.Attempted, StageCommunity)
	if r.community(ctx, &out) {
		return out
	}

	if !r.model.Available() {
		return out
	}
	out.Attempted = append(out.Attempted, StageModel)
	r.askModel(ctx, &out)
	return out
}

func (r *Resolver) community(ctx context.Context, out *Outcome) bool {
	if r.kb == nil {
		return false
	}
	tokens := SalientTokens(out.ErrorText)
	if len(tokens) == 0 {
		return false
	}
	results, err := r.kb.SearchWithScores(ctx, strings.Join(tokens, " "), out.Tags, r.communityLimit)
	if err != nil {
		r.log.Warn("knowledge base search failed", zap.Error(err))
		out.Warnings = append(out.Warnings, "knowledge base unavailable: "+err.Error())
		return false
	}
	if len(results) == 0 {
		return false
	}

	best := results[0]
	out.Stage = StageCommunity
	out.Command = best.Command
	out.SuccessRate = best.SuccessRate
	out.Confidence = best.SuccessRate / 100
	out.Uses = best.Uses()
	for _, alt := range results[1:] {
		if alt.Command == best.Command {
			continue
		}
		out.Alternates = append(out.Alternates, Alternate{
			Command:     alt.Command,
			SuccessRate: alt.SuccessRate,
			Uses:        alt.Uses(),
		})
	}
	return true
}

func (r *Resolver) askModel(ctx context.Context, out *Outcome) {
	s, err := r.model.GetFix(ctx, out.ErrorText, out.Tags)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return
		}
		r.log.Warn("model request failed", zap.Error(err))
		out.Warnings = append(out.Warnings, "model unavailable: "+err.Error())
		return
	}
	out.Explanation = s.Explanation
	if s.Command == "" {
		return
	}
	out.Stage = StageModel
	out.Command = s.Command
	out.Unverified = true
}

// SalientTokens extracts up to five search tokens from error text: runs of
// letters, digits, '-' and '_' longer than two characters that are not
// stopwords.
func SalientTokens(errText string) []string {
	fields := strings.FieldsFunc(errText, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_')
	})
	seen := make(map[string]bool)
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, "-")
		lower := strings.ToLower(f)
		if len(f) <= 2 || stopwords[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, f)
		if len(out) == maxSalientTokens {
			break
		}
	}
	return out
}
