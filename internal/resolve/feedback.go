package resolve

import (
	"context"
	"errors"
	"strings"
)

const (
	patternMaxRunes  = 100
	patternMaxTokens = 10
)

// ErrNoCommand is returned when feedback is given for an outcome without a
// command.
var ErrNoCommand = errors.New("outcome has no command")

var errNoKnowledgeBase = errors.New("no knowledge base configured")

// NormalizeErrorPattern reduces error text to the key fixes are stored
// under: the first 100 characters, then at most 10 whitespace tokens.
func NormalizeErrorPattern(errText string) string {
	runes := []rune(errText)
	if len(runes) > patternMaxRunes {
		runes = runes[:patternMaxRunes]
	}
	fields := strings.Fields(string(runes))
	if len(fields) > patternMaxTokens {
		fields = fields[:patternMaxTokens]
	}
	return strings.Join(fields, " ")
}

// Feedback records whether the command of o fixed its error.
func (r *Resolver) Feedback(ctx context.Context, o Outcome, worked bool) error {
	if !o.Found() {
		return ErrNoCommand
	}
	return r.Record(ctx, o.Command, o.ErrorText, o.Tags, worked)
}

// Record stores one confirmed outcome of running command against errText.
func (r *Resolver) Record(ctx context.Context, command, errText string, tags []string, worked bool) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return ErrNoCommand
	}
	if r.kb == nil {
		return errNoKnowledgeBase
	}
	pattern := NormalizeErrorPattern(errText)
	if worked {
		return r.kb.LogSuccess(ctx, command, pattern, strings.Join(tags, ","))
	}
	return r.kb.LogFailure(ctx, command, pattern)
}
