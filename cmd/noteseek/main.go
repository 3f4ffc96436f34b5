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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/noteseek"
	"github.com/poiesic/noteseek/config"
	"github.com/poiesic/noteseek/storage/pgvector"
	"github.com/poiesic/noteseek/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "noteseek",
		Usage: "Hybrid search and grounded answers over your notes and saved videos",
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
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"NOTESEEK_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the BadgerDB index directory",
				Value:   "./noteseek_db",
				EnvVars: []string{"NOTESEEK_DB"},
			},
			&cli.StringFlag{
				Name:    "notes",
				Aliases: []string{"n"},
				Usage:   "Path to the SQLite note store",
				Value:   "./notes.db",
				EnvVars: []string{"NOTESEEK_NOTES"},
			},
			&cli.StringFlag{
				Name:    "pg",
				Usage:   "PostgreSQL connection string; stores vectors in pgvector instead of BadgerDB",
				EnvVars: []string{"NOTESEEK_PG_URL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Index every document of the note store",
				Action: indexCommand,
			},
			{
				Name:      "search",
				Usage:     "Search the corpus",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Usage:   "Search strategy (hybrid, semantic, keyword)",
						Value:   "hybrid",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results to print (0 prints all)",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "context",
						Usage: "Print the assembled model context",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the corpus",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "sources",
						Usage: "Print the sources the answer was grounded on",
						Value: true,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the vector index, resuming an interrupted run",
				Action: reindexCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show corpus and index statistics",
				Action: statsCommand,
			},
			{
				Name:   "purge-embeddings",
				Usage:  "Remove expired embeddings from the persistent cache",
				Action: purgeCommand,
			},
		},
	}
}

// loadConfig reads the config file, applies environment overrides and
// validates the result.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openEngine wires an engine over the note store. The returned cleanup
// closes everything that was opened.
func openEngine(c *cli.Context) (*noteseek.Engine, func(), error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	notes, err := sqlite.Open(c.String("notes"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open note store: %w", err)
	}
	closers := []func(){func() { notes.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []noteseek.EngineOption{
		noteseek.WithConfig(cfg),
		noteseek.WithDocumentSource(notes),
		noteseek.WithLogger(slog.Default()),
	}
	if conn := c.String("pg"); conn != "" {
		store, err := pgvector.New(c.Context, pgvector.Config{
			ConnString: conn,
			Dimensions: cfg.AI.EmbeddingDimensions,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to open pgvector store: %w", err)
		}
		closers = append(closers, func() { store.Close() })
		opts = append(opts, noteseek.WithVectorStore(store))
	}

	engine, err := noteseek.NewEngine(c.String("db"), opts...)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}
	closers = append(closers, func() { engine.Close() })
	return engine, cleanup, nil
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
