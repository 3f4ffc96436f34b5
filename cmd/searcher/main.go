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


// Command searcher runs a single hybrid search against ./noteseek_db and
// ./notes.db and prints the ranked hits.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/noteseek"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/orchestrator"
	"github.com/poiesic/noteseek/storage/sqlite"
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	notes, err := sqlite.Open("./notes.db")
	if err != nil {
		panic(err)
	}
	defer notes.Close()

	engine, err := noteseek.NewEngine("./noteseek_db", noteseek.WithDocumentSource(notes))
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	query := "sourdough starter"
	if len(os.Args) > 1 {
		query = strings.Join(os.Args[1:], " ")
	}

	resp, err := engine.Search(context.Background(), orchestrator.Request{
		SessionID: "searcher",
		Query:     query,
		Strategy:  core.SearchMethodHybrid,
	})
	if err != nil {
		panic(err)
	}

	fmt.Printf("Found %d hits in %dms\n", len(resp.Results), resp.Metrics.SearchTimeMs)
	for i, hit := range resp.Results {
		fmt.Printf("%d: '%s' (%s)[%0.3f]\n", i, hit.Title, hit.ID, hit.Relevance)
	}
}
