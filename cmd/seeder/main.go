package main

import (
	"bufio"
	"context"
	"flag"
	"iter"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/poiesic/agentdex"
	"github.com/poiesic/agentdex/chains"
	"github.com/poiesic/agentdex/core"
)

var (
	seedFileName = flag.String("src", "", "file of agent ids, one per line")
	dbPath       = flag.String("db", "./agent_db", "snapshot database directory")
	chainID      = flag.Uint64("chain", 1, "chain id for unqualified agent ids")
	probeCount   = flag.Uint64("count", 20, "token ids to probe when no source file is given")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// tokenRange returns an iterator over the first n token ids of a chain.
func tokenRange(chain core.ChainID, n uint64) iter.Seq[string] {
	return func(yield func(string) bool) {
		for i := uint64(1); i <= n; i++ {
			id := core.MakeAgentID(chain, strconv.FormatUint(i, 10))
			if !yield(string(id)) {
				return
			}
		}
	}
}

// refreshBatched reads agent ids from a source iterator and refreshes them
// into the local store in batches. Ids that fail to resolve are logged and
// skipped.
func refreshBatched(ctx context.Context, dir *agentdex.Directory, source iter.Seq[string], batchSize int) error {
	batch := make([]core.AgentID, 0, batchSize)

	for line := range source {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		batch = append(batch, core.AgentID(line))
		if len(batch) == batchSize {
			if _, err := dir.RefreshAgents(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	// Process any remaining ids
	if len(batch) > 0 {
		if _, err := dir.RefreshAgents(ctx, batch); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	dir, err := agentdex.NewDirectory(
		chains.Config{Primary: core.ChainID(*chainID)},
		agentdex.WithDatabasePath(*dbPath),
	)
	if err != nil {
		panic(err)
	}
	defer dir.Close()

	ctx := context.Background()

	// Determine source of agent ids
	var source iter.Seq[string]
	if *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = tokenRange(core.ChainID(*chainID), *probeCount)
	}

	// Refresh in batches of 5
	if err := refreshBatched(ctx, dir, source, 5); err != nil {
		panic(err)
	}
}
