package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
	"github.com/CoReason-AI/coreason-search/internal/output"
	"github.com/CoReason-AI/coreason-search/internal/store"
)

const (
	// ingestBatchSize bounds memory while embedding large corpora.
	ingestBatchSize = 64
	lockTimeout     = 30 * time.Second
)

func newCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Manage the document corpus",
	}
	cmd.AddCommand(newCorpusLoadCmd(), newCorpusSeedCmd())
	return cmd
}

func newCorpusLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.jsonl>",
		Short: "Load documents from a JSONL file",
		Long: `Load documents into the corpus.

The input is one JSON object per line:

  {"doc_id": "pmid-1", "content": "...", "title": "...", "abstract": "...", "metadata": {"year": 2023}}

Each document is embedded, written to the document store, and indexed
for sparse and dense retrieval. Existing doc_ids are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readCorpusFile(args[0])
			if err != nil {
				return err
			}
			return ingestCorpus(cmd.Context(), rows)
		},
	}
}

func newCorpusSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in demo corpus",
		Long: `Load a small biomedical demo corpus.

The demo documents line up with the development knowledge graph, so
dense, fts, and graph strategies all return results out of the box.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ingestCorpus(cmd.Context(), demoCorpus())
		},
	}
}

// corpusLine is the JSONL wire form of one document.
type corpusLine struct {
	DocID    string         `json:"doc_id"`
	Content  string         `json:"content"`
	Title    *string        `json:"title"`
	Abstract *string        `json:"abstract"`
	Metadata map[string]any `json:"metadata"`
}

func readCorpusFile(path string) ([]*store.DocumentRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cserrors.DataError(fmt.Sprintf("open corpus file: %s", err.Error()), err)
	}
	defer func() { _ = f.Close() }()

	var rows []*store.DocumentRow
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var cl corpusLine
		if err := json.Unmarshal(line, &cl); err != nil {
			return nil, cserrors.DataError(
				fmt.Sprintf("line %d: invalid JSON: %s", lineNo, err.Error()), err)
		}
		if cl.DocID == "" {
			return nil, cserrors.DataError(fmt.Sprintf("line %d: doc_id is required", lineNo), nil)
		}
		if cl.Content == "" {
			return nil, cserrors.DataError(fmt.Sprintf("line %d: content is required", lineNo), nil)
		}
		metadata := "{}"
		if cl.Metadata != nil {
			encoded, merr := json.Marshal(cl.Metadata)
			if merr != nil {
				return nil, cserrors.DataError(
					fmt.Sprintf("line %d: invalid metadata: %s", lineNo, merr.Error()), merr)
			}
			metadata = string(encoded)
		}
		rows = append(rows, &store.DocumentRow{
			DocID:    cl.DocID,
			Content:  cl.Content,
			Title:    cl.Title,
			Abstract: cl.Abstract,
			Metadata: metadata,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, cserrors.DataError(fmt.Sprintf("read corpus file: %s", err.Error()), err)
	}
	if len(rows) == 0 {
		return nil, cserrors.DataError("corpus file contains no documents", nil)
	}
	return rows, nil
}

// ingestCorpus embeds and indexes rows under an exclusive file lock so
// concurrent loads cannot interleave writes to the same database.
func ingestCorpus(ctx context.Context, rows []*store.DocumentRow) error {
	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	out := output.New(os.Stdout)

	if app.cfg.DatabaseURI != "" {
		lock := flock.New(app.cfg.DatabaseURI + ".lock")
		lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
		defer cancel()
		locked, lerr := lock.TryLockContext(lockCtx, 500*time.Millisecond)
		if lerr != nil {
			return cserrors.BackendError(fmt.Sprintf("acquire corpus lock: %s", lerr.Error()), lerr)
		}
		if !locked {
			return cserrors.BackendError("corpus is locked by another process", nil)
		}
		defer func() { _ = lock.Unlock() }()
	}

	started := time.Now()
	for start := 0; start < len(rows); start += ingestBatchSize {
		end := min(start+ingestBatchSize, len(rows))
		batch := rows[start:end]

		texts := make([]string, len(batch))
		ids := make([]string, len(batch))
		for i, row := range batch {
			texts[i] = row.Content
			ids[i] = row.DocID
		}
		vectors, err := app.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return cserrors.BackendError(fmt.Sprintf("embed batch: %s", err.Error()), err)
		}
		for i, row := range batch {
			row.Vector = vectors[i]
		}

		if err := app.docs.Add(ctx, batch); err != nil {
			return err
		}
		if err := app.fts.Index(ctx, batch); err != nil {
			return err
		}
		if err := app.index.Add(ctx, ids, vectors); err != nil {
			return err
		}
		out.Statusf("", "indexed %d/%d documents", end, len(rows))
	}

	if path := vectorIndexPath(app.cfg.DatabaseURI); path != "" {
		if err := app.index.Save(path); err != nil {
			return err
		}
	}

	elapsed := time.Since(started)
	app.logger.Info("corpus_loaded",
		slog.Int("documents", len(rows)),
		slog.Duration("elapsed", elapsed))
	out.Successf("loaded %d documents in %s", len(rows), elapsed.Round(time.Millisecond))
	return nil
}
