package store

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// seedCreatedAt stamps curated rows so they sort behind anything a user adds.
const seedCreatedAt = 1700000000

// seedUses is the notional number of uses a seed file score is spread over.
const seedUses = 20

type curatedFix struct {
	command, pattern, tags string
	success, fail         int64
}

var curated = []curatedFix{
	{"npm install", "npm ERR! code ENOENT", "nodejs,javascript", 50, 5},
	{"npm install", "module not found", "nodejs,javascript", 45, 4},
	{"npm cache clean --force && npm install", "npm ERR! code EINTEGRITY", "nodejs,javascript", 38, 3},
	{"rm -rf node_modules && npm install", "npm ERR! peer dep missing", "nodejs,javascript", 42, 6},
	{"npm audit fix", "npm WARN deprecated", "nodejs,javascript", 30, 2},
	{"npm install --legacy-peer-deps", "ERESOLVE unable to resolve dependency tree", "nodejs,javascript", 55, 8},
	{"npx create-react-app . --template typescript", "create-react-app command not found", "nodejs,react", 25, 2},

	{"pip install -r requirements.txt", "ModuleNotFoundError: No module named", "python", 60, 5},
	{"pip install numpy", "no module named numpy", "python", 35, 3},
	{"python -m venv venv && source venv/bin/activate", "externally-managed-environment", "python", 28, 2},
	{"pip install --upgrade pip", "pip is configured with locations that require TLS", "python", 22, 1},
	{"pip3 install", "command not found: pip", "python", 40, 4},

	{"git config --global http.sslVerify false", "SSL certificate problem", "git", 30, 5},
	{"git pull --rebase origin main", "Your local changes would be overwritten", "git", 35, 4},
	{"git stash && git pull && git stash pop", "Please commit your changes or stash them", "git", 45, 3},
	{"git remote set-url origin git@github.com:user/repo.git", "could not resolve host: github.com", "git", 25, 2},
	{"git checkout -b main && git branch -D master", "fatal: 'master' is not a git repository", "git", 20, 2},
	{"git config --global init.defaultBranch main", "warning: the 'master' branch", "git", 18, 1},

	{"cargo clean && cargo build", "could not compile", "rust", 40, 5},
	{"cargo update", "failed to select a version", "rust", 35, 3},
	{"rustup update", "error: linker 'cc' not found", "rust", 28, 2},
	{"cargo build --release", "memory allocation failed", "rust", 22, 4},

	{"go mod tidy", "missing go.sum entry", "golang", 48, 3},
	{"go mod download", "cannot find module providing package", "golang", 36, 4},

	{"docker system prune -a", "no space left on device", "docker", 50, 4},
	{"docker-compose down && docker-compose up -d", "port is already allocated", "docker", 45, 5},
	{"sudo systemctl start docker", "Cannot connect to the Docker daemon", "docker", 55, 3},
	{"docker pull", "TLS handshake timeout", "docker", 25, 3},

	{"kubectl config use-context", "The connection to the server localhost:8080 was refused", "kubernetes", 30, 4},

	{"sudo chown -R $USER:$USER .", "EACCES: permission denied", "linux,macos", 60, 8},
	{"chmod +x", "Permission denied", "linux,macos", 55, 5},
	{"sudo", "Operation not permitted", "linux,macos", 50, 6},

	{"sudo systemctl start postgresql", "connection refused", "postgresql", 35, 3},
	{"mysql -u root -p", "Access denied for user 'root'", "mysql", 30, 4},
	{"redis-server", "Address already in use", "redis", 28, 2},

	{"make clean && make", "make: *** No rule to make target", "c,cpp", 32, 4},
	{"cmake -B build && cmake --build build", "CMake Error", "cmake", 28, 3},

	{"curl -k", "SSL certificate verify failed", "api,http", 35, 4},

	{"npx tsc --init", "Cannot find module 'typescript'", "typescript", 40, 3},
	{"npm install @types/node --save-dev", "Could not find a declaration file", "typescript", 45, 4},
}

// CuratedEntries returns the built-in fixes inserted into an empty
// knowledge base.
func CuratedEntries() []BrainEntry {
	out := make([]BrainEntry, 0, len(curated))
	for _, c := range curated {
		out = append(out, BrainEntry{
			Command:      c.command,
			ErrorPattern: c.pattern,
			ContextTags:  c.tags,
			SuccessCount: c.success,
			FailCount:    c.fail,
			Provenance:   ProvenanceSeed,
			CreatedAt:    seedCreatedAt,
		})
	}
	return out
}

// SeedIfEmpty inserts the curated fixes when the knowledge base has no rows.
// It reports whether anything was inserted.
func (b *Brain) SeedIfEmpty(ctx context.Context) (bool, error) {
	n, err := b.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := b.InsertBatch(ctx, CuratedEntries()); err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	return true, nil
}

// SeedEntry is one record of a seed file.
type SeedEntry struct {
	Command      string   `yaml:"command" json:"command"`
	ContextTags  []string `yaml:"context_tags,omitempty" json:"context_tags,omitempty"`
	SuccessScore *float64 `yaml:"success_score,omitempty" json:"success_score,omitempty"`
	Provenance   string   `yaml:"provenance,omitempty" json:"provenance,omitempty"`
	ErrorPattern string   `yaml:"error_pattern,omitempty" json:"error_pattern,omitempty"`
}

// Entry converts a seed record into a knowledge base row. A score in [0,1]
// is a success fraction; larger values are read as a percentage. The
// fraction is spread over a fixed number of notional uses.
func (s SeedEntry) Entry() BrainEntry {
	e := BrainEntry{
		Command:      strings.TrimSpace(s.Command),
		ErrorPattern: s.ErrorPattern,
		ContextTags:  strings.Join(s.ContextTags, ","),
		Provenance:   s.Provenance,
	}
	if e.Provenance == "" {
		e.Provenance = ProvenanceSeed
	}
	if s.SuccessScore != nil {
		frac := *s.SuccessScore
		if frac > 1 {
			frac /= 100
		}
		frac = min(max(frac, 0), 1)
		e.SuccessCount = int64(math.Round(frac * seedUses))
		e.FailCount = seedUses - e.SuccessCount
	}
	return e
}

// ParseSeed decodes a seed file. YAML is a superset of JSON so both formats
// are accepted.
func ParseSeed(data []byte) ([]SeedEntry, error) {
	var entries []SeedEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return entries, nil
}

// LoadSeedFile reads and decodes the seed file at path.
func LoadSeedFile(path string) ([]SeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

// Seed upserts seed file records and returns how many were applied.
func (b *Brain) Seed(ctx context.Context, entries []SeedEntry) (int, error) {
	rows := make([]BrainEntry, 0, len(entries))
	for _, s := range entries {
		rows = append(rows, s.Entry())
	}
	return b.InsertBatch(ctx, rows)
}
