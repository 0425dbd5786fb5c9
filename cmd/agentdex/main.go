// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/agentdex"
	"github.com/poiesic/agentdex/chains"
	"github.com/poiesic/agentdex/core"
	"github.com/poiesic/agentdex/refresh"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "agentdex",
		Usage: "Cross-chain discovery and search over onchain agent registries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML chains configuration file",
			},
			&cli.Uint64Flag{
				Name:  "chain",
				Usage: "Primary chain id when no config file is given",
				Value: 1,
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the local snapshot database (in-memory when empty)",
			},
			&cli.StringFlag{
				Name:  "semantic",
				Usage: "Relevance service base URL (enables keyword search)",
			},
			&cli.StringFlag{
				Name:  "gateway",
				Usage: "IPFS gateway base URL for registration files",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search agents across the configured chains",
				ArgsUsage: "[keyword...]",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "chains",
						Usage: "Chain ids to search (\"all\" for every configured chain)",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Substring match on agent names",
					},
					&cli.StringSliceFlag{
						Name:  "owner",
						Usage: "Restrict to agents owned by these addresses",
					},
					&cli.StringSliceFlag{
						Name:  "skill",
						Usage: "Require these A2A skills",
					},
					&cli.StringSliceFlag{
						Name:  "trust",
						Usage: "Require these supported trust models",
					},
					&cli.BoolFlag{
						Name:  "active",
						Usage: "Only active agents",
					},
					&cli.BoolFlag{
						Name:  "mcp",
						Usage: "Only agents with an MCP endpoint",
					},
					&cli.BoolFlag{
						Name:  "a2a",
						Usage: "Only agents with an A2A endpoint",
					},
					&cli.BoolFlag{
						Name:  "x402",
						Usage: "Only agents accepting x402 payments",
					},
					&cli.Int64Flag{
						Name:  "min-feedback",
						Usage: "Minimum number of feedback entries",
					},
					&cli.StringSliceFlag{
						Name:  "sort",
						Usage: "Sort order, field or field:direction",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of results",
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum relevance score for keyword matches",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print results as JSON",
					},
				},
			},
			{
				Name:      "get",
				Usage:     "Fetch one agent by id",
				ArgsUsage: "<agent-id>",
				Action:    getCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the agent as JSON",
					},
				},
			},
			{
				Name:   "feedback",
				Usage:  "List feedback left for agents",
				Action: feedbackCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Fetch a single feedback entry by its id",
					},
					&cli.StringSliceFlag{
						Name:  "agent",
						Usage: "Restrict to feedback for these agents",
					},
					&cli.StringSliceFlag{
						Name:  "chains",
						Usage: "Chain ids to search (\"all\" for every configured chain)",
					},
					&cli.StringSliceFlag{
						Name:  "reviewer",
						Usage: "Restrict to feedback from these addresses",
					},
					&cli.StringFlag{
						Name:  "tag",
						Usage: "Match either feedback tag",
					},
					&cli.BoolFlag{
						Name:  "include-revoked",
						Usage: "Include revoked feedback",
					},
					&cli.BoolFlag{
						Name:  "has-response",
						Usage: "Only feedback the agent answered",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print results as JSON",
					},
				},
			},
			{
				Name:      "refresh",
				Usage:     "Re-index agents into the local snapshot store",
				ArgsUsage: "[agent-id...]",
				Action:    refreshCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of agents refreshed in parallel",
						Value: refresh.DefaultConcurrency,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of agents to process in each batch",
						Value: refresh.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N agents",
						Value: refresh.DefaultReportInterval,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed fetches",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print refreshed agents as JSON",
					},
				},
			},
		},
	}
}

// buildDirectory assembles a directory from the global flags, with the
// config file taking precedence over individual overrides.
func buildDirectory(c *cli.Context, extra ...agentdex.Option) (*agentdex.Directory, error) {
	var cfg chains.Config
	if path := c.String("config"); path != "" {
		loaded, err := chains.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = chains.Config{Primary: core.ChainID(c.Uint64("chain"))}
	}
	if s := c.String("semantic"); s != "" {
		cfg.Semantic = s
	}
	if g := c.String("gateway"); g != "" {
		cfg.Gateway = g
	}

	var opts []agentdex.Option
	if db := c.String("db"); db != "" {
		opts = append(opts, agentdex.WithDatabasePath(db))
	}
	opts = append(opts, extra...)

	return agentdex.NewDirectory(cfg, opts...)
}

func searchCommand(c *cli.Context) error {
	dir, err := buildDirectory(c)
	if err != nil {
		return fmt.Errorf("failed to build directory: %w", err)
	}
	defer dir.Close()

	q := buildSearchQuery(c)
	results, err := dir.SearchAgents(c.Context, q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.Bool("json") {
		return printJSON(results)
	}
	fmt.Printf("Found %d agents\n", len(results))
	for i, agent := range results {
		line := fmt.Sprintf("%d: %s '%s'", i, agent.AgentID, agent.Name)
		if q.Keyword != "" {
			line += fmt.Sprintf(" [%0.3f]", agent.SemanticScore)
		}
		fmt.Println(line)
	}
	return nil
}

// buildSearchQuery maps the search command's flags onto a query.
func buildSearchQuery(c *cli.Context) *core.SearchQuery {
	filters := &core.SearchFilters{
		Name:            c.String("name"),
		Owners:          c.StringSlice("owner"),
		A2ASkills:       c.StringSlice("skill"),
		SupportedTrusts: c.StringSlice("trust"),
		Chains:          chainSelector(c.StringSlice("chains")),
	}
	if c.IsSet("active") {
		v := c.Bool("active")
		filters.Active = &v
	}
	if c.IsSet("mcp") {
		v := c.Bool("mcp")
		filters.HasMCP = &v
	}
	if c.IsSet("a2a") {
		v := c.Bool("a2a")
		filters.HasA2A = &v
	}
	if c.IsSet("x402") {
		v := c.Bool("x402")
		filters.X402Support = &v
	}
	if c.IsSet("min-feedback") {
		v := c.Int64("min-feedback")
		filters.Feedback = &core.FeedbackQueryFilter{MinCount: &v}
	}

	return &core.SearchQuery{
		Keyword:  strings.Join(c.Args().Slice(), " "),
		Filters:  filters,
		Sort:     c.StringSlice("sort"),
		TopK:     c.Int("top-k"),
		MinScore: c.Float64("min-score"),
	}
}

func chainSelector(entries []string) core.ChainSelector {
	if len(entries) == 1 && strings.EqualFold(entries[0], "all") {
		return core.AllChains()
	}
	if len(entries) > 0 {
		return core.ChainList(entries...)
	}
	return core.ChainSelector{}
}

func getCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("agent id is required")
	}

	dir, err := buildDirectory(c)
	if err != nil {
		return fmt.Errorf("failed to build directory: %w", err)
	}
	defer dir.Close()

	summary, err := dir.GetAgent(c.Context, core.AgentID(id))
	if err != nil {
		return fmt.Errorf("failed to fetch agent: %w", err)
	}

	if c.Bool("json") {
		return printJSON(summary)
	}
	fmt.Printf("%s '%s'\n", summary.AgentID, summary.Name)
	if summary.Description != "" {
		fmt.Printf("  %s\n", summary.Description)
	}
	for _, owner := range summary.Owners {
		fmt.Printf("  owner: %s\n", owner)
	}
	if summary.MCPEndpoint != "" {
		fmt.Printf("  mcp: %s\n", summary.MCPEndpoint)
	}
	if summary.A2AEndpoint != "" {
		fmt.Printf("  a2a: %s\n", summary.A2AEndpoint)
	}
	fmt.Printf("  feedback: %d\n", summary.FeedbackCount)
	return nil
}

func feedbackCommand(c *cli.Context) error {
	dir, err := buildDirectory(c)
	if err != nil {
		return fmt.Errorf("failed to build directory: %w", err)
	}
	defer dir.Close()

	if id := c.String("id"); id != "" {
		fb, err := dir.GetFeedback(c.Context, id)
		if err != nil {
			return fmt.Errorf("failed to fetch feedback: %w", err)
		}
		if c.Bool("json") {
			return printJSON(fb)
		}
		printFeedback(*fb)
		return nil
	}

	results, err := dir.SearchFeedback(c.Context, &core.FeedbackFilters{
		AgentIDs:       c.StringSlice("agent"),
		Chains:         chainSelector(c.StringSlice("chains")),
		Reviewers:      c.StringSlice("reviewer"),
		Tag:            c.String("tag"),
		IncludeRevoked: c.Bool("include-revoked"),
		HasResponse:    c.Bool("has-response"),
		Limit:          c.Int("limit"),
	})
	if err != nil {
		return fmt.Errorf("feedback search failed: %w", err)
	}

	if c.Bool("json") {
		return printJSON(results)
	}
	fmt.Printf("Found %d feedback entries\n", len(results))
	for _, fb := range results {
		printFeedback(fb)
	}
	return nil
}

func printFeedback(fb core.Feedback) {
	line := fmt.Sprintf("%s: %s -> %s value=%g", fb.ID, fb.Reviewer, fb.AgentID, fb.Value)
	if fb.Tag1 != "" {
		line += " #" + fb.Tag1
	}
	if fb.Tag2 != "" {
		line += " #" + fb.Tag2
	}
	if fb.IsRevoked {
		line += " (revoked)"
	}
	fmt.Println(line)
}

func refreshCommand(c *cli.Context) error {
	dbPath := c.String("db")
	if dbPath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if c.Int("report-interval") <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	dir, err := buildDirectory(c, agentdex.WithRefreshOptions(
		refresh.WithConcurrency(c.Int("concurrency")),
		refresh.WithBatchSize(c.Int("batch-size")),
		refresh.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		refresh.WithProgress(os.Stderr, c.Int("report-interval")),
	))
	if err != nil {
		return fmt.Errorf("failed to build directory: %w", err)
	}
	defer dir.Close()

	var ids []core.AgentID
	for _, arg := range c.Args().Slice() {
		ids = append(ids, core.AgentID(arg))
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	summaries, err := dir.RefreshAgents(c.Context, ids)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	if c.Bool("json") {
		return printJSON(summaries)
	}
	fmt.Printf("Refreshed %d agents\n", len(summaries))
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
