package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/orchestrator"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	scoreColor   = color.New(color.FgYellow)
	labelColor   = color.New(color.FgMagenta)
	metricsColor = color.New(color.FgHiBlack)
	answerColor  = color.New(color.FgGreen)
)

func indexCommand(c *cli.Context) error {
	engine, cleanup, err := openEngine(c)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := engine.Corpus().ListDocuments(c.Context)
	if err != nil {
		return fmt.Errorf("failed to read note store: %w", err)
	}
	if len(docs) == 0 {
		fmt.Fprintln(c.App.ErrWriter, "No documents to index")
		return nil
	}

	bar := newProgressBar(c.App.ErrWriter, len(docs), "Indexing")
	indexed, err := engine.IndexAll(c.Context, docs, func(done, _ int) {
		bar.Set(done)
	})
	bar.Finish()
	fmt.Fprintln(c.App.ErrWriter)

	if err != nil {
		color.New(color.FgRed).Fprintf(c.App.ErrWriter, "%d of %d documents failed:\n%v\n", len(docs)-indexed, len(docs), err)
	}
	fmt.Fprintf(c.App.Writer, "Indexed %d of %d documents\n", indexed, len(docs))
	if indexed == 0 && err != nil {
		return errors.New("nothing was indexed")
	}
	return nil
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
	)
}

func queryArg(c *cli.Context, what string) (string, error) {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return "", fmt.Errorf("%s is required", what)
	}
	return q, nil
}

func searchCommand(c *cli.Context) error {
	query, err := queryArg(c, "query")
	if err != nil {
		return err
	}
	method, err := core.ParseSearchMethod(c.String("strategy"))
	if err != nil {
		return err
	}

	engine, cleanup, err := openEngine(c)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.Search(c.Context, orchestrator.Request{
		SessionID: uuid.NewString(),
		Query:     query,
		Strategy:  method,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	w := c.App.Writer
	if resp.NoRelevantContent {
		fmt.Fprintln(w, "No relevant content found")
		return nil
	}

	results := resp.Results
	if limit := c.Int("limit"); limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	printResults(w, results)
	printMetrics(w, resp.Metrics)

	if c.Bool("context") {
		fmt.Fprintln(w)
		titleColor.Fprintln(w, "Context")
		fmt.Fprintln(w, resp.Context)
	}
	return nil
}

func printResults(w io.Writer, results []core.SearchResult) {
	for i, r := range results {
		fmt.Fprintf(w, "%2d. %s %s %s\n",
			i+1,
			labelColor.Sprint(r.SourceType.Label()),
			titleColor.Sprint(r.Title),
			scoreColor.Sprintf("(%.3f)", r.Relevance))
		if r.ChannelName != "" {
			fmt.Fprintf(w, "    channel: %s\n", r.ChannelName)
		}
		if r.Snippet != "" {
			fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(r.Snippet, "\n", " "))
		}
	}
}

func printMetrics(w io.Writer, m orchestrator.Metrics) {
	var flags []string
	if m.CacheHit {
		flags = append(flags, "cached")
	}
	if m.SemanticDegraded {
		flags = append(flags, "semantic unavailable")
	}
	if m.Rejected > 0 {
		flags = append(flags, fmt.Sprintf("%d rejected", m.Rejected))
	}
	line := fmt.Sprintf("%d results via %s in %dms, quality %.2f", m.ResultCount, m.Strategy, m.SearchTimeMs, m.QualityScore)
	if len(flags) > 0 {
		line += " (" + strings.Join(flags, ", ") + ")"
	}
	metricsColor.Fprintln(w, line)
}

func askCommand(c *cli.Context) error {
	question, err := queryArg(c, "question")
	if err != nil {
		return err
	}

	engine, cleanup, err := openEngine(c)
	if err != nil {
		return err
	}
	defer cleanup()

	answer, err := engine.Ask(c.Context, uuid.NewString(), question)
	if err != nil {
		return err
	}

	w := c.App.Writer
	answerColor.Fprintln(w, answer.Text)
	if c.Bool("sources") && answer.Grounded {
		fmt.Fprintln(w)
		titleColor.Fprintln(w, "Sources")
		for _, s := range answer.Sources {
			fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint(s.SourceType.Label()), s.Title)
		}
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	engine, cleanup, err := openEngine(c)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := engine.Config()
	fmt.Fprintf(c.App.ErrWriter, "Index: %s\n", c.String("db"))
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	reindexer, err := engine.NewReindexer(c.App.ErrWriter)
	if err != nil {
		return err
	}
	summary, err := reindexer.Run(c.Context)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	if summary.Failed > 0 {
		color.New(color.FgYellow).Fprintf(c.App.ErrWriter, "%d documents could not be indexed; see the log for details\n", summary.Failed)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	engine, cleanup, err := openEngine(c)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := engine.Corpus().ListDocuments(c.Context)
	if err != nil {
		return fmt.Errorf("failed to read note store: %w", err)
	}
	counts := map[core.SourceType]int{}
	for _, d := range docs {
		counts[d.SourceType]++
	}

	w := c.App.Writer
	titleColor.Fprintln(w, "Corpus")
	fmt.Fprintf(w, "  documents: %d\n", len(docs))
	fmt.Fprintf(w, "  notes:     %d\n", counts[core.SourceTypeNote])
	fmt.Fprintf(w, "  videos:    %d\n", counts[core.SourceTypeVideo])

	titleColor.Fprintln(w, "Index")
	if chunks, err := engine.IndexedChunks(c.Context); err == nil {
		fmt.Fprintf(w, "  chunks:    %d\n", chunks)
	} else if !errors.Is(err, errors.ErrUnsupported) {
		return fmt.Errorf("failed to count index: %w", err)
	}

	cs := engine.CacheStats()
	titleColor.Fprintln(w, "Result cache")
	fmt.Fprintf(w, "  capacity:  %d (trim to %d)\n", cs.Capacity, cs.Target)
	fmt.Fprintf(w, "  ttl:       %s\n", cs.TTL)
	return nil
}

func purgeCommand(c *cli.Context) error {
	engine, cleanup, err := openEngine(c)
	if err != nil {
		return err
	}
	defer cleanup()

	removed, err := engine.PurgeEmbeddings(c.Context)
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Removed %d expired embeddings\n", removed)
	return nil
}
