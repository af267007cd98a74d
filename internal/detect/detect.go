// Package detect derives project context tags from the files in a directory
// and turns them into ranking boosts for candidate commands.
package detect

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Context tags.
const (
	TagDocker        = "docker"
	TagDockerCompose = "docker-compose"
	TagNode          = "nodejs"
	TagPython        = "python"
	TagGo            = "golang"
	TagRust          = "rust"
	TagJava          = "java"
	TagKubernetes    = "kubernetes"
	TagGit           = "git"
)

// maxManifestSize is the largest YAML file inspected for Kubernetes markers (1 MB).
const maxManifestSize = 1 << 20

// markers maps glob patterns (relative to the project root, non-recursive)
// to the tag they imply.
var markers = []struct {
	pattern string
	tag     string
}{
	{"Dockerfile", TagDocker},
	{"docker-compose.y*ml", TagDockerCompose},
	{"package.json", TagNode},
	{"{pyproject.toml,requirements.txt}", TagPython},
	{"go.mod", TagGo},
	{"Cargo.toml", TagRust},
	{"pom.xml", TagJava},
}

// Detect inspects dir and returns the tags of every technology found.
// A missing or unreadable directory yields an empty Context.
func Detect(dir string) Context {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Context{}
	}

	fsys := os.DirFS(dir)
	var tags []string
	for _, m := range markers {
		matches, err := doublestar.Glob(fsys, m.pattern, doublestar.WithFilesOnly())
		if err == nil && len(matches) > 0 {
			tags = append(tags, m.tag)
		}
	}

	if hasKubernetesManifest(dir) {
		tags = append(tags, TagKubernetes)
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		tags = append(tags, TagGit)
	}

	return New(tags...)
}

// hasKubernetesManifest reports whether any top-level .yml/.yaml file
// mentions "kind:" or "apiVersion:".
func hasKubernetesManifest(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Size() > maxManifestSize {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		content := string(data)
		if strings.Contains(content, "kind:") || strings.Contains(content, "apiVersion:") {
			return true
		}
	}
	return false
}

// Context is an immutable, deduplicated set of project tags.
type Context struct {
	tags []string
}

// New builds a Context from tags, dropping blanks and duplicates.
func New(tags ...string) Context {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return Context{tags: slices.Compact(out)}
}

// Parse builds a Context from a comma-joined tag string.
func Parse(s string) Context {
	return New(strings.Split(s, ",")...)
}

// Tags returns the sorted tags.
func (c Context) Tags() []string {
	return slices.Clone(c.tags)
}

// Has reports whether tag was detected.
func (c Context) Has(tag string) bool {
	_, found := slices.BinarySearch(c.tags, tag)
	return found
}

// Empty reports whether no tag was detected.
func (c Context) Empty() bool { return len(c.tags) == 0 }

// String joins the tags with commas, the form stored in the knowledge base.
func (c Context) String() string {
	return strings.Join(c.tags, ",")
}
