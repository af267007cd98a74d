// Package histfile parses shell history files and the hook command log into
// history entries.
package histfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hindsight/internal/store"
)

// Format is a history file layout.
type Format string

const (
	// FormatLog is the hook log: "<epoch>\t<command>" per line.
	FormatLog Format = "log"
	// FormatBash is ~/.bash_history, optionally with "#<epoch>" lines.
	FormatBash Format = "bash"
	// FormatZsh is ~/.zsh_history, plain or extended (": <epoch>:<dur>;cmd").
	FormatZsh Format = "zsh"
)

// Stats summarizes a parse. Base is the anchor that untimestamped lines
// were stamped from.
type Stats struct {
	Lines   int
	Parsed  int
	Skipped int
	Base    int64
}

// ParseFormat validates a format name. Empty means detect from the path.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatLog, FormatBash, FormatZsh:
		return f, nil
	default:
		return "", fmt.Errorf("unknown history format %q (want log, bash or zsh)", s)
	}
}

// DetectFormat guesses the format from the file name.
func DetectFormat(path string) Format {
	base := filepath.Base(path)
	switch {
	case strings.Contains(base, "zsh"):
		return FormatZsh
	case strings.Contains(base, "bash"):
		return FormatBash
	default:
		return FormatLog
	}
}

// ReadFile parses the file at path. Entry i without its own timestamp is
// stamped base+i+1. A zero base anchors the file so its last entry lands on
// the modification time; callers re-importing a growing file pass the base
// of the first import back in so earlier lines keep their timestamps.
func ReadFile(path string, format Format, workingDir string, base int64) ([]store.HistoryEntry, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	end := time.Now()
	if fi, err := f.Stat(); err == nil {
		end = fi.ModTime()
	}
	if format == "" {
		format = DetectFormat(path)
	}
	return parse(f, format, workingDir, func(n int) int64 {
		if base != 0 {
			return base
		}
		return end.Unix() - int64(n)
	})
}

// Parse reads entries from r. Entry i without its own timestamp is stamped
// base+i+1, so the same line keeps its timestamp when the file grows.
func Parse(r io.Reader, format Format, workingDir string, base int64) ([]store.HistoryEntry, Stats, error) {
	return parse(r, format, workingDir, func(int) int64 { return base })
}

func parse(r io.Reader, format Format, workingDir string, anchor func(entries int) int64) ([]store.HistoryEntry, Stats, error) {
	var p parser
	switch format {
	case FormatLog:
		p = parseLog
	case FormatBash:
		p = parseBash
	case FormatZsh:
		p = parseZsh
	default:
		return nil, Stats{}, fmt.Errorf("unknown history format %q", format)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, Stats{}, fmt.Errorf("read history: %w", err)
	}

	raw, stats := p(lines)
	stats.Base = anchor(len(raw))
	return stamp(raw, workingDir, stats.Base), stats, nil
}

// rawEntry has ts 0 when the source line carried no timestamp.
type rawEntry struct {
	command string
	ts      int64
}

type parser func(lines []string) ([]rawEntry, Stats)

func stamp(raw []rawEntry, workingDir string, base int64) []store.HistoryEntry {
	out := make([]store.HistoryEntry, 0, len(raw))
	for i, r := range raw {
		ts := r.ts
		if ts == 0 {
			ts = base + int64(i) + 1
		}
		out = append(out, store.HistoryEntry{
			Command:    r.command,
			WorkingDir: workingDir,
			Timestamp:  ts,
		})
	}
	return out
}

func parseLog(lines []string) ([]rawEntry, Stats) {
	var (
		out   []rawEntry
		stats Stats
	)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.Lines++
		tsPart, cmd, ok := strings.Cut(line, "\t")
		cmd = strings.TrimSpace(cmd)
		if !ok || cmd == "" {
			stats.Skipped++
			continue
		}
		ts, _ := strconv.ParseInt(strings.TrimSpace(tsPart), 10, 64)
		out = append(out, rawEntry{command: cmd, ts: max(ts, 0)})
		stats.Parsed++
	}
	return out, stats
}

func parseBash(lines []string) ([]rawEntry, Stats) {
	var (
		out     []rawEntry
		stats   Stats
		pending int64
	)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "#"); ok {
			if ts, err := strconv.ParseInt(rest, 10, 64); err == nil {
				pending = ts
				continue
			}
		}
		stats.Lines++
		out = append(out, rawEntry{command: line, ts: pending})
		pending = 0
		stats.Parsed++
	}
	return out, stats
}

func parseZsh(lines []string) ([]rawEntry, Stats) {
	var (
		out   []rawEntry
		stats Stats
	)
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		// Multi-line commands end each continued line with a backslash.
		for strings.HasSuffix(line, `\`) && i+1 < len(lines) {
			i++
			line = strings.TrimSuffix(line, `\`) + "\n" + lines[i]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.Lines++

		var ts int64
		cmd := line
		if rest, ok := strings.CutPrefix(line, ": "); ok {
			meta, body, found := strings.Cut(rest, ";")
			if !found {
				stats.Skipped++
				continue
			}
			epoch, _, _ := strings.Cut(meta, ":")
			parsed, err := strconv.ParseInt(strings.TrimSpace(epoch), 10, 64)
			if err != nil {
				stats.Skipped++
				continue
			}
			ts, cmd = parsed, body
		}
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			stats.Skipped++
			continue
		}
		out = append(out, rawEntry{command: cmd, ts: ts})
		stats.Parsed++
	}
	return out, stats
}
