// Package resolve turns an error or a free-text query into ranked shell
// commands. Fix requests walk the rule engine, the knowledge base and the
// model in order; recall requests merge history and knowledge base matches.
package resolve

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hindsight/internal/detect"
	"hindsight/internal/llm"
	"hindsight/internal/rules"
	"hindsight/internal/store"
)

const (
	defaultRecallLimit    = 10
	defaultCommunityLimit = 3
)

// RuleMatcher is satisfied by *rules.Engine and *rules.Live.
type RuleMatcher interface {
	Apply(errText string) (rules.Match, bool)
}

// HistorySearcher is satisfied by *store.History.
type HistorySearcher interface {
	SearchScored(ctx context.Context, query string, limit int) ([]store.CommandScore, error)
}

// KnowledgeBase is satisfied by *store.Brain.
type KnowledgeBase interface {
	SearchWithScores(ctx context.Context, query string, contextTags []string, limit int) ([]store.BrainResult, error)
	LogSuccess(ctx context.Context, command, errorPattern, contextTags string) error
	LogFailure(ctx context.Context, command, errorPattern string) error
}

// FixModel is satisfied by *llm.FixClient.
type FixModel interface {
	Available() bool
	GetFix(ctx context.Context, errText string, contextTags []string) (llm.Suggestion, error)
}

// Deps are the collaborators of a Resolver. Model and Detect may be nil.
type Deps struct {
	Rules     RuleMatcher
	History   HistorySearcher
	Knowledge KnowledgeBase
	Model     FixModel
	Detect    func(dir string) detect.Context
	Log       *zap.Logger
}

// Options tune result sizes.
type Options struct {
	RecallLimit    int
	CommunityLimit int
}

// Resolver runs fix, recall and feedback requests.
type Resolver struct {
	rules   RuleMatcher
	history HistorySearcher
	kb      KnowledgeBase
	model   FixModel
	detect  func(dir string) detect.Context
	log     *zap.Logger

	recallLimit    int
	communityLimit int
	newID          func() string
}

// New builds a Resolver.
func New(d Deps, opts Options) *Resolver {
	r := &Resolver{
		rules:          d.Rules,
		history:        d.History,
		kb:             d.Knowledge,
		model:          d.Model,
		detect:         d.Detect,
		log:            d.Log,
		recallLimit:    opts.RecallLimit,
		communityLimit: opts.CommunityLimit,
		newID:          uuid.NewString,
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.model == nil {
		r.model = llm.NewFixClient(nil, 0, r.log)
	}
	if r.detect == nil {
		r.detect = detect.Detect
	}
	if r.recallLimit <= 0 {
		r.recallLimit = defaultRecallLimit
	}
	if r.communityLimit <= 0 {
		r.communityLimit = defaultCommunityLimit
	}
	return r
}

// ModelAvailable reports whether the model layer can be tried.
func (r *Resolver) ModelAvailable() bool { return r.model.Available() }

// Context detects the project tags of dir.
func (r *Resolver) Context(dir string) detect.Context { return r.detect(dir) }
