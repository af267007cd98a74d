package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hindsight/internal/resolve"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing recall and fix tools over stdio",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Rule edits apply to a long-running server without a restart.
	go func() {
		if err := a.rules.Watch(ctx); err != nil {
			logger.Warn("rule watcher stopped", zap.Error(err))
		}
	}()

	outcomes := newOutcomeCache(maxPendingOutcomes)

	s := mcpserver.NewMCPServer("hindsight", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(recallCommandsTool(), makeRecallHandler(a.resolver))
	s.AddTool(fixErrorTool(), makeFixHandler(a.resolver, outcomes))
	s.AddTool(reportFixOutcomeTool(), makeReportHandler(a.resolver, outcomes))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func recallCommandsTool() mcp.Tool {
	return mcp.NewTool("recall_commands",
		mcp.WithDescription("Search the user's shell history and the local knowledge base of fixes. Returns commands ranked by recency, frequency and project context."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Words from the command being looked for, e.g. 'docker build'"),
		),
		mcp.WithString("directory",
			mcp.Description("Project directory used to detect context (default: server working directory)"),
		),
	)
}

func fixErrorTool() mcp.Tool {
	return mcp.NewTool("fix_error",
		mcp.WithDescription("Suggest a shell command that fixes an error message. Tries pattern rules, then fixes that worked before, then the configured model. The result carries an outcome_id for report_fix_outcome."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{
			ReadOnlyHint:    mcp.ToBoolPtr(true),
			DestructiveHint: mcp.ToBoolPtr(false),
			IdempotentHint:  mcp.ToBoolPtr(false),
			OpenWorldHint:   mcp.ToBoolPtr(true),
		}),
		mcp.WithString("error",
			mcp.Required(),
			mcp.Description("The error output to fix"),
		),
		mcp.WithString("directory",
			mcp.Description("Project directory used to detect context (default: server working directory)"),
		),
	)
}

func reportFixOutcomeTool() mcp.Tool {
	return mcp.NewTool("report_fix_outcome",
		mcp.WithDescription("Report whether a command suggested by fix_error actually fixed the error. Successful fixes rank higher in later suggestions."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{
			ReadOnlyHint:    mcp.ToBoolPtr(false),
			DestructiveHint: mcp.ToBoolPtr(false),
			IdempotentHint:  mcp.ToBoolPtr(false),
			OpenWorldHint:   mcp.ToBoolPtr(false),
		}),
		mcp.WithString("outcome_id",
			mcp.Required(),
			mcp.Description("The outcome_id returned by fix_error"),
		),
		mcp.WithBoolean("worked",
			mcp.Required(),
			mcp.Description("true if running the command fixed the error"),
		),
	)
}

// --- Handler factories ---

func makeRecallHandler(r *resolve.Resolver) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := strings.TrimSpace(req.GetString("query", ""))
		if query == "" {
			return mcp.NewToolResultError("query must not be empty"), nil
		}
		dir, err := toolDir(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatRecall(r.Recall(ctx, dir, query))), nil
	}
}

func makeFixHandler(r *resolve.Resolver, outcomes *outcomeCache) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		errText := strings.TrimSpace(req.GetString("error", ""))
		if errText == "" {
			return mcp.NewToolResultError("error must not be empty"), nil
		}
		dir, err := toolDir(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		o := r.Fix(ctx, dir, errText)
		if o.Found() {
			outcomes.put(o)
		}
		return mcp.NewToolResultText(formatOutcome(o)), nil
	}
}

func makeReportHandler(r *resolve.Resolver, outcomes *outcomeCache) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("outcome_id", "")
		o, ok := outcomes.take(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown outcome_id %q; call fix_error first", id)), nil
		}
		worked := req.GetBool("worked", false)
		if err := r.Feedback(ctx, o, worked); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("record feedback failed: %v", err)), nil
		}
		if worked {
			return mcp.NewToolResultText(fmt.Sprintf("Recorded `%s` as a working fix.", o.Command)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Recorded `%s` as not working.", o.Command)), nil
	}
}

func toolDir(req mcp.CallToolRequest) (string, error) {
	if dir := req.GetString("directory", ""); dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// --- Outcome cache ---

const maxPendingOutcomes = 256

// outcomeCache keeps fix outcomes until their feedback arrives. The oldest
// entry is dropped once the cache is full.
type outcomeCache struct {
	mu    sync.Mutex
	max   int
	order []string
	byID  map[string]resolve.Outcome
}

func newOutcomeCache(limit int) *outcomeCache {
	return &outcomeCache{max: limit, byID: make(map[string]resolve.Outcome)}
}

func (c *outcomeCache) put(o resolve.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[o.ID]; !ok {
		c.order = append(c.order, o.ID)
	}
	c.byID[o.ID] = o
	for len(c.order) > c.max {
		delete(c.byID, c.order[0])
		c.order = c.order[1:]
	}
}

// take returns and forgets the outcome so feedback is recorded once.
func (c *outcomeCache) take(id string) (resolve.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.byID[id]
	if !ok {
		return resolve.Outcome{}, false
	}
	delete(c.byID, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return o, true
}

// --- Formatting helpers ---

func formatRecall(res resolve.RecallResult) string {
	var sb strings.Builder
	if len(res.Candidates) == 0 {
		fmt.Fprintf(&sb, "No commands found for query: %q\n", res.Query)
	} else {
		fmt.Fprintf(&sb, "## Commands for %q (%d)\n\n", res.Query, len(res.Candidates))
		if len(res.Tags) > 0 {
			fmt.Fprintf(&sb, "**Context:** %s\n\n", strings.Join(res.Tags, ", "))
		}
		for i, c := range res.Candidates {
			fmt.Fprintf(&sb, "%d. `%s` %s\n", i+1, c.Command, recallDetail(c))
		}
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&sb, "\n> warning: %s\n", w)
	}
	return sb.String()
}

func formatOutcome(o resolve.Outcome) string {
	var sb strings.Builder
	if !o.Found() {
		fmt.Fprintf(&sb, "No fix found. Tried: %s.\n", stageList(o.Attempted))
		if o.Explanation != "" {
			fmt.Fprintf(&sb, "\n%s\n", o.Explanation)
		}
	} else {
		fmt.Fprintf(&sb, "## Suggested fix\n\n```sh\n%s\n```\n\n", o.Command)
		switch o.Stage {
		case resolve.StageRule:
			fmt.Fprintf(&sb, "**Source:** rule `%s`  \n**Confidence:** %.0f%%\n", o.Rule, o.Confidence*100)
		case resolve.StageCommunity:
			fmt.Fprintf(&sb, "**Source:** knowledge base  \n**Success rate:** %.0f%% over %d uses\n", o.SuccessRate, o.Uses)
		case resolve.StageModel:
			fmt.Fprintf(&sb, "**Source:** model (unverified)\n")
		}
		if o.Explanation != "" {
			fmt.Fprintf(&sb, "\n%s\n", o.Explanation)
		}
		if len(o.Alternates) > 0 {
			sb.WriteString("\n**Alternatives:**\n")
			for _, alt := range o.Alternates {
				fmt.Fprintf(&sb, "- `%s` (%.0f%% success, %d uses)\n", alt.Command, alt.SuccessRate, alt.Uses)
			}
		}
		fmt.Fprintf(&sb, "\n**outcome_id:** %s\n", o.ID)
	}
	for _, w := range o.Warnings {
		fmt.Fprintf(&sb, "\n> warning: %s\n", w)
	}
	return sb.String()
}
