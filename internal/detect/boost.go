package detect

import "strings"

// NeutralBoost is returned when no tag keyword matches a command.
const NeutralBoost = 1.0

type boostRule struct {
	tags       []string
	keywords   []string
	multiplier float64
}

// boostTable is evaluated in order; the first rule whose tag is present and
// whose keyword appears in the command decides the multiplier. Multipliers
// never stack.
var boostTable = []boostRule{
	{[]string{TagNode}, []string{"npm", "yarn", "node"}, 2.5},
	{[]string{TagPython}, []string{"pip", "python", "venv"}, 2.5},
	{[]string{TagDocker, TagDockerCompose}, []string{"docker"}, 2.5},
	{[]string{TagKubernetes}, []string{"kubectl", "helm", "k8s"}, 2.5},
	{[]string{TagGit}, []string{"git"}, 2.0},
	{[]string{TagRust}, []string{"cargo", "rustc"}, 2.5},
	{[]string{TagGo}, []string{"go ", "go\t"}, 2.5},
	{[]string{TagJava}, []string{"mvn", "gradle", "javac"}, 2.5},
}

// Boost returns the ranking multiplier for command in this context.
func (c Context) Boost(command string) float64 {
	if c.Empty() {
		return NeutralBoost
	}
	cmd := strings.ToLower(command)
	for _, r := range boostTable {
		if !c.hasAny(r.tags) {
			continue
		}
		for _, kw := range r.keywords {
			if containsKeyword(cmd, kw) {
				return r.multiplier
			}
		}
	}
	return NeutralBoost
}

func (c Context) hasAny(tags []string) bool {
	for _, t := range tags {
		if c.Has(t) {
			return true
		}
	}
	return false
}

// containsKeyword is a substring match, except that keywords ending in
// whitespace ("go ") must also start at a word boundary so "cargo build"
// does not count as a go command.
func containsKeyword(cmd, kw string) bool {
	if !strings.HasSuffix(kw, " ") && !strings.HasSuffix(kw, "\t") {
		return strings.Contains(cmd, kw)
	}
	for i := 0; i+len(kw) <= len(cmd); i++ {
		if cmd[i:i+len(kw)] != kw {
			continue
		}
		if i == 0 || !isWordByte(cmd[i-1]) {
			return true
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || b == '-' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
