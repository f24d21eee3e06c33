package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/foodcourt/internal/domain/discount"
	"github.com/xenking/foodcourt/internal/storage/postgres"
)

const bloomFPR = 0.001

// fileResult holds the rows parsed from a single file.
type fileResult struct {
	records []record
	bad     []*rowError
}

func main() {
	var (
		databaseURL string
		batchSize   int
		dryRun      bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", 500, "number of codes upserted per batch")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and deduplicate without writing to the database")
	flag.Usage = func() {
		_, _ = os.Stderr.WriteString("usage: discount-import [flags] codes1.csv.gz [codes2.csv.gz ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	files, err := expandFiles(flag.Args())
	if err != nil {
		slog.Error("invalid file arguments", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, files, databaseURL, batchSize, dryRun); err != nil {
		slog.Error("discount import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("discount import completed successfully")
}

// expandFiles resolves glob patterns, keeping argument order.
func expandFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "glob %q", arg)
		}
		if len(matches) == 0 {
			return nil, errors.Errorf("no file matches %q", arg)
		}
		files = append(files, matches...)
	}
	return files, nil
}

func run(ctx context.Context, files []string, databaseURL string, batchSize int, dryRun bool) error {
	slog.Info("parsing files", slog.Int("files", len(files)))

	results, err := parseFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse files")
	}

	var all []record
	for _, r := range results {
		for _, bad := range r.bad {
			slog.Warn("skipping malformed row", slog.String("error", bad.Error()))
		}
		all = append(all, r.records...)
	}

	codes, duplicates := dedupe(all)
	slog.Info("codes parsed",
		slog.Int("rows", len(all)),
		slog.Int("unique", len(codes)),
		slog.Int("duplicates", duplicates),
	)

	if len(codes) == 0 {
		slog.Info("no codes to import")
		return nil
	}
	if dryRun {
		slog.Info("dry run, nothing written")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := writeCodes(ctx, postgres.NewDiscountRepository(pool), codes, batchSize); err != nil {
		return errors.Wrap(err, "write discount codes")
	}
	return nil
}

// parseFiles parses every file concurrently.
func parseFiles(ctx context.Context, files []string) ([]fileResult, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			records, bad, err := parseFile(ctx, i, path)
			if err != nil {
				return err
			}
			slog.Info("file parsed",
				slog.String("path", path),
				slog.Int("codes", len(records)),
				slog.Int("malformed", len(bad)),
			)
			results[i] = fileResult{records: records, bad: bad}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// dedupe keeps the first occurrence of every code, ordered by file then line.
//
// A bloom filter flags codes that may have been seen before; only those are
// confirmed against an exact set, so the exact set stays small when most
// codes are unique.
func dedupe(records []record) ([]discount.Code, int) {
	slices.SortStableFunc(records, func(a, b record) int {
		if a.file != b.file {
			return a.file - b.file
		}
		return a.line - b.line
	})

	filter := bloom.NewWithEstimates(uint(max(len(records), 1)), bloomFPR)
	suspects := make(map[string]struct{})
	for _, r := range records {
		if filter.TestString(r.code.Code) {
			suspects[r.code.Code] = struct{}{}
			continue
		}
		filter.AddString(r.code.Code)
	}

	codes := make([]discount.Code, 0, len(records))
	seen := make(map[string]struct{}, len(suspects))
	duplicates := 0
	for _, r := range records {
		if _, suspect := suspects[r.code.Code]; suspect {
			if _, dup := seen[r.code.Code]; dup {
				duplicates++
				continue
			}
			seen[r.code.Code] = struct{}{}
		}
		codes = append(codes, r.code)
	}
	return codes, duplicates
}

// codeWriter stores discount codes in bulk.
type codeWriter interface {
	Upsert(ctx context.Context, codes []discount.Code) error
}

// writeCodes upserts codes in batches. Existing codes keep their id and used
// count.
func writeCodes(ctx context.Context, w codeWriter, codes []discount.Code, batchSize int) error {
	if batchSize < 1 {
		batchSize = 1
	}
	slog.Info("writing discount codes", slog.Int("count", len(codes)))

	written := 0
	for batch := range slices.Chunk(codes, batchSize) {
		for i := range batch {
			if batch[i].ID == "" {
				batch[i].ID = uuid.NewString()
			}
		}
		if err := w.Upsert(ctx, batch); err != nil {
			return errors.Wrapf(err, "upsert batch at %d", written)
		}
		written += len(batch)
		slog.Info("write progress", slog.Int("written", written), slog.Int("total", len(codes)))
	}
	return nil
}
