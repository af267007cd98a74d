// Package rules matches error text against an ordered list of declarative
// regex rules and renders the fix command of the first rule that matches.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultConfidence applies to rules that do not set one.
const DefaultConfidence = 0.6

// maxPositional is the highest $N placeholder substituted.
const maxPositional = 5

//go:embed default_rules.yaml
var defaultRules []byte

// Rule is one entry of a rule file.
type Rule struct {
	Name        string   `yaml:"name"`
	MatchRegex  string   `yaml:"match_regex"`
	FixCommand  string   `yaml:"fix_command"`
	Confidence  *float64 `yaml:"confidence,omitempty"`
	Explanation string   `yaml:"explanation,omitempty"`
}

// File is the on-disk rule file layout.
type File struct {
	Rules []Rule `yaml:"rules"`
}

// Match is the result of a successful Apply.
type Match struct {
	Rule        string
	Command     string
	Confidence  float64
	Explanation string
}

// RuleError reports a rule whose pattern failed to compile.
type RuleError struct {
	Name string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %q: %v", e.Name, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Engine applies compiled rules in file order.
type Engine struct {
	rules   []compiledRule
	skipped []error
}

// Parse decodes a rule file. Both a `rules:` mapping and a bare list are
// accepted.
func Parse(data []byte) ([]Rule, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err == nil {
		return f.Rules, nil
	}
	var list []Rule
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	return list, nil
}

// Compile builds an Engine. Rules whose pattern does not compile are
// skipped and reported through Skipped.
func Compile(rules []Rule) *Engine {
	e := &Engine{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		re, err := regexp.Compile(r.MatchRegex)
		if err != nil {
			e.skipped = append(e.skipped, &RuleError{Name: r.Name, Err: err})
			continue
		}
		e.rules = append(e.rules, compiledRule{Rule: r, re: re})
	}
	return e
}

// Default returns the engine built from the embedded rule set.
func Default() *Engine {
	rules, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return Compile(rules)
}

// LoadFile reads the rule file at path. A missing file yields the embedded
// default rules. Skipped rules are logged, never fatal.
func LoadFile(path string, log *zap.Logger) (*Engine, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug("rule file not found, using defaults", zap.String("path", path))
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		return nil, err
	}
	e := Compile(parsed)
	for _, skipped := range e.Skipped() {
		log.Warn("skipping malformed rule", zap.String("path", path), zap.Error(skipped))
	}
	return e, nil
}

// Len returns the number of usable rules.
func (e *Engine) Len() int { return len(e.rules) }

// Skipped returns the compile errors of rules left out of the engine.
func (e *Engine) Skipped() []error { return e.skipped }

// Apply returns the fix of the first rule matching errText.
func (e *Engine) Apply(errText string) (Match, bool) {
	for _, r := range e.rules {
		loc := r.re.FindStringSubmatchIndex(errText)
		if loc == nil {
			continue
		}
		conf := DefaultConfidence
		if r.Confidence != nil {
			conf = *r.Confidence
		}
		return Match{
			Rule:        r.Name,
			Command:     render(r.re, r.FixCommand, errText, loc),
			Confidence:  conf,
			Explanation: r.Explanation,
		}, true
	}
	return Match{}, false
}

// render substitutes {{name}} placeholders from named groups, then $1..$5
// from positional groups. Groups that did not participate in the match leave
// their placeholder untouched.
func render(re *regexp.Regexp, template, text string, loc []int) string {
	group := func(i int) (string, bool) {
		if 2*i+1 >= len(loc) || loc[2*i] < 0 {
			return "", false
		}
		return text[loc[2*i]:loc[2*i+1]], true
	}

	out := template
	for i, name := range re.SubexpNames() {
		if name == "" {
			continue
		}
		if v, ok := group(i); ok {
			out = strings.ReplaceAll(out, "{{"+name+"}}", v)
		}
	}
	for i := 1; i <= maxPositional && i <= re.NumSubexp(); i++ {
		if v, ok := group(i); ok {
			out = strings.ReplaceAll(out, "$"+strconv.Itoa(i), v)
		}
	}
	return out
}
