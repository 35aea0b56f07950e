// Command codanna wires the config, index coordinator, and query layer
// together into a single runnable binary. Tool-call transport (MCP/LSP),
// plugin installers, and rich flag surfaces are external collaborators;
// this entry point exists to exercise the core end to end.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/codanna/codanna/internal/config"
	"github.com/codanna/codanna/internal/embed"
	"github.com/codanna/codanna/internal/errs"
	_ "github.com/codanna/codanna/internal/langreg"
	"github.com/codanna/codanna/internal/indexcoord"
	"github.com/codanna/codanna/internal/query"
	"github.com/codanna/codanna/internal/store"
	"github.com/codanna/codanna/internal/vectorstore"
	"github.com/codanna/codanna/internal/version"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "codanna",
		Usage:   "parse, index, and query a codebase's symbols and relationships",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Value: ".", Usage: "project root to index/query"},
		},
		Commands: []*cli.Command{
			indexCommand(),
			watchCommand(),
			findSymbolCommand(),
			searchCommand(),
			callsCommand(),
			callersCommand(),
			impactCommand(),
			semanticCommand(),
			infoCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "codanna:", err)
		if se, ok := asStructured(err); ok {
			os.Exit(errs.ExitCode(se.Kind()))
		}
		os.Exit(1)
	}
}

func asStructured(err error) (errs.Structured, bool) {
	se, ok := err.(errs.Structured)
	return se, ok
}

// engine builds a Coordinator for cfg.Project.Root and an Engine over the
// same new in-memory Symbol Store (plus the vector file under .codanna when
// embeddings are enabled). The store is empty until the Coordinator
// indexes; callers that only query can discard the coordinator.
func engine(c *cli.Context) (*indexcoord.Coordinator, *query.Engine, error) {
	cfg, err := config.Load(c.String("root"))
	if err != nil {
		return nil, nil, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, nil, err
	}

	st := store.New()

	var emb embed.Embedder
	var vecs *vectorstore.Store
	if cfg.Embedding.Enabled {
		emb = embed.NewLocalEmbedder()
		vecPath := cfg.Project.Root + "/.codanna/vectors.bin"
		vs, err := vectorstore.Open(vecPath, emb)
		if err != nil {
			return nil, nil, fmt.Errorf("opening vector store: %w", err)
		}
		vecs = vs
	}

	coord := indexcoord.New(cfg.Project.Root, st, vecs, emb, cfg.Performance.ParallelFileWorkers)
	coord.IgnorePatterns = append(coord.IgnorePatterns, cfg.Exclude...)

	eng := query.New(st, vecs, emb)
	return coord, eng, nil
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "parse every file under root and (re)build the index",
		Action: func(c *cli.Context) error {
			coord, eng, err := engine(c)
			if err != nil {
				return err
			}
			if err := coord.IndexAll(context.Background()); err != nil {
				return err
			}
			return printJSON(eng.GetIndexInfo())
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "index root, then watch it for changes until interrupted",
		Action: func(c *cli.Context) error {
			coord, _, err := engine(c)
			if err != nil {
				return err
			}
			if err := coord.IndexAll(context.Background()); err != nil {
				return err
			}
			if err := coord.StartWatching(0); err != nil {
				return err
			}
			defer coord.StopWatching()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			return nil
		},
	}
}

func findSymbolCommand() *cli.Command {
	return &cli.Command{
		Name:      "find-symbol",
		Usage:     "find_symbol: exact name or numeric symbol id lookup",
		ArgsUsage: "<name-or-id>",
		Action: func(c *cli.Context) error {
			_, eng, err := engine(c)
			if err != nil {
				return err
			}
			return printJSON(eng.FindSymbol(c.Args().First()))
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "search_symbols: fuzzy name search, auto-truncated to the token budget",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 50},
			&cli.StringFlag{Name: "module"},
		},
		Action: func(c *cli.Context) error {
			_, eng, err := engine(c)
			if err != nil {
				return err
			}
			res := eng.SearchSymbols(query.SearchSymbolsParams{
				Query:  c.Args().First(),
				Limit:  c.Int("limit"),
				Module: c.String("module"),
			})
			return printJSON(res)
		},
	}
}

func callsCommand() *cli.Command {
	return &cli.Command{
		Name:      "calls",
		Usage:     "get_calls: the call sites target makes",
		ArgsUsage: "<name-or-id>",
		Action: func(c *cli.Context) error {
			_, eng, err := engine(c)
			if err != nil {
				return err
			}
			return printJSON(eng.GetCalls(c.Args().First()))
		},
	}
}

func callersCommand() *cli.Command {
	return &cli.Command{
		Name:      "callers",
		Usage:     "find_callers: the call sites that call target",
		ArgsUsage: "<name-or-id>",
		Action: func(c *cli.Context) error {
			_, eng, err := engine(c)
			if err != nil {
				return err
			}
			return printJSON(eng.FindCallers(c.Args().First()))
		},
	}
}

func impactCommand() *cli.Command {
	return &cli.Command{
		Name:      "impact",
		Usage:     "analyze_impact: transitive calls/uses/extends/implements closure",
		ArgsUsage: "<name-or-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "depth", Value: 3},
		},
		Action: func(c *cli.Context) error {
			_, eng, err := engine(c)
			if err != nil {
				return err
			}
			return printJSON(eng.AnalyzeImpact(c.Args().First(), c.Int("depth")))
		},
	}
}

func semanticCommand() *cli.Command {
	return &cli.Command{
		Name:      "semantic",
		Usage:     "semantic_search_with_context: embedding similarity search over doc text",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "lang"},
			&cli.Float64Flag{Name: "threshold", Value: 0.0},
			&cli.IntFlag{Name: "limit", Value: 20},
		},
		Action: func(c *cli.Context) error {
			_, eng, err := engine(c)
			if err != nil {
				return err
			}
			res := eng.SemanticSearchWithContext(context.Background(), c.Args().First(), c.String("lang"), c.Float64("threshold"), c.Int("limit"))
			return printJSON(res)
		},
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "get_index_info: symbol/file counts and breakdowns",
		Action: func(c *cli.Context) error {
			_, eng, err := engine(c)
			if err != nil {
				return err
			}
			return printJSON(eng.GetIndexInfo())
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
