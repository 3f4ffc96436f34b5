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
	"iter"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/storage/sqlite"
)

var sampleCreated = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

var samples = []sqlite.Entry{
	{Document: core.Document{ID: "note-sourdough", Title: "Sourdough schedule", SourceType: core.SourceTypeNote, CreatedAt: sampleCreated,
		Content: "Feed the starter the night before. Mix at 8am, stretch and fold every 30 minutes for two hours, bulk ferment until doubled."}},
	{Document: core.Document{ID: "note-knots", Title: "Climbing knots", SourceType: core.SourceTypeNote, CreatedAt: sampleCreated,
		Content: "Tie in with a figure eight follow through. Dress the knot, leave a fist of tail, and always partner check before climbing."}},
	{Document: core.Document{ID: "note-garden", Title: "Garden plan", SourceType: core.SourceTypeNote, CreatedAt: sampleCreated,
		Content: "<h1>Beds</h1><ul><li>Tomatoes along the south fence</li><li>Basil between the tomatoes</li></ul><p>Water deeply twice a week.</p>"},
		Format: sqlite.FormatHTML},
	{Document: core.Document{ID: "video-bread", Title: "Open crumb sourdough", SourceType: core.SourceTypeVideo, CreatedAt: sampleCreated,
		ChannelName: "Bake With Jack", VideoID: "bwj-001",
		Content: "Today we are shaping a high hydration dough. The key to an open crumb is gentle handling and a strong starter."}},
	{Document: core.Document{ID: "video-rope", Title: "Rope care basics", SourceType: core.SourceTypeVideo, CreatedAt: sampleCreated,
		ChannelName: "Hard Is Easy", VideoID: "hie-042"}},
	{Document: core.Document{ID: "note-espresso", Title: "Espresso dial in", SourceType: core.SourceTypeNote, CreatedAt: sampleCreated,
		Content: "Eighteen grams in, thirty six out, twenty eight seconds. Grind finer if it runs fast."}},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:  "seeder",
		Usage: "Load a YAML corpus into the note store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "src",
				Usage: "YAML seed file; the built-in sample corpus is used when empty",
			},
			&cli.StringFlag{
				Name:    "notes",
				Aliases: []string{"n"},
				Usage:   "Path to the SQLite note store",
				Value:   "./notes.db",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of documents written per transaction",
				Value: 5,
			},
		},
		Action: seed,
	}
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func seed(c *cli.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	var source iter.Seq[sqlite.Entry]
	if src := c.String("src"); src != "" {
		var err error
		source, err = entriesFromFile(src, time.Now())
		if err != nil {
			return err
		}
	} else {
		source = entriesFromSlice(samples)
	}

	store, err := sqlite.Open(c.String("notes"))
	if err != nil {
		return fmt.Errorf("failed to open note store: %w", err)
	}
	defer store.Close()

	written, err := writeBatched(c.Context, store, source, c.Int("batch-size"))
	if err != nil {
		return fmt.Errorf("seeding stopped after %d documents: %w", written, err)
	}
	logger.Info("seeded note store", "path", c.String("notes"), "documents", written)
	return nil
}
