// Command coupon-ingest bulk-imports coupon batches into the database and
// emits the bloom filter the API server uses to prescreen coupon codes.
//
// Each batch is a gzip-compressed CSV with one coupon per line:
//
//	code,description,discount_type,discount_value,minimum_amount,
//	valid_from,valid_to,max_total_uses,max_uses_per_customer
//
// Batches are scanned concurrently. Codes already present in the database
// are skipped, and the emitted filter covers both existing and new codes.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
	"github.com/Yuliannahernandez/backend-app/internal/domain/pricing"
	"github.com/Yuliannahernandez/backend-app/internal/storage/postgres"
)

const (
	filterCapacity = 1_000_000
	filterFPR      = 0.001
	dateLayout     = "2006-01-02"
	recordFields   = 9
	progressEvery  = 1_000
)

func main() {
	var (
		dataDir     string
		databaseURL string
		filterOut   string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing coupon batch *.csv.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&filterOut, "filter-out", "coupon-codes.bloom", "path to write the coupon code bloom filter")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, filterOut); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL, filterOut string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv.gz"))
	if err != nil {
		return errors.Wrap(err, "list batch files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.csv.gz batch files found in %s", dataDir)
	}

	slog.Info("scanning coupon batches", slog.Int("files", len(files)))

	batches, err := parseBatches(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse batches")
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := postgres.NewCouponRepository(pool)

	existing, err := repo.ListCodes(ctx)
	if err != nil {
		return errors.Wrap(err, "list existing codes")
	}

	seen := make(map[string]struct{}, len(existing))
	filter := coupon.NewCodeFilter(filterCapacity, filterFPR)
	for _, code := range existing {
		seen[code] = struct{}{}
		filter.Add(code)
	}

	inserted, skipped := 0, 0
	for _, batch := range batches {
		for i := range batch {
			c := &batch[i]
			if _, ok := seen[c.Code]; ok {
				skipped++
				continue
			}
			if err := repo.Create(ctx, c); err != nil {
				return errors.Wrapf(err, "insert coupon %s", c.Code)
			}
			seen[c.Code] = struct{}{}
			filter.Add(c.Code)

			inserted++
			if inserted%progressEvery == 0 {
				slog.Info("insert progress", slog.Int("inserted", inserted))
			}
		}
	}

	slog.Info("coupons written",
		slog.Int("inserted", inserted),
		slog.Int("skipped_existing", skipped),
	)

	if err := filter.WriteTo(filterOut); err != nil {
		return errors.Wrap(err, "write code filter")
	}
	slog.Info("code filter written",
		slog.String("path", filterOut),
		slog.Int("codes", len(seen)),
	)

	return nil
}

// parseBatches reads every batch file concurrently. Duplicate codes across
// batches keep the first occurrence.
func parseBatches(ctx context.Context, files []string) ([][]coupon.Coupon, error) {
	results := make([][]coupon.Coupon, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			coupons, err := parseBatchFile(ctx, f)
			if err != nil {
				return errors.Wrapf(err, "parse %s", f)
			}
			slog.Info("batch parsed",
				slog.String("file", filepath.Base(f)),
				slog.Int("coupons", len(coupons)),
			)
			results[i] = coupons
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	deduped := make(map[string]struct{})
	for i := range results {
		kept := results[i][:0]
		for _, c := range results[i] {
			if _, ok := deduped[c.Code]; ok {
				continue
			}
			deduped[c.Code] = struct{}{}
			kept = append(kept, c)
		}
		results[i] = kept
	}

	return results, nil
}

// parseBatchFile streams one gzip-compressed CSV batch.
func parseBatchFile(ctx context.Context, path string) ([]coupon.Coupon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	reader := csv.NewReader(gz)
	reader.FieldsPerRecord = recordFields
	reader.TrimLeadingSpace = true

	var (
		coupons []coupon.Coupon
		line    int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read record")
		}
		line++

		c, err := parseRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		coupons = append(coupons, c)
	}

	return coupons, nil
}

func parseRecord(record []string) (coupon.Coupon, error) {
	code := coupon.Normalize(record[0])
	if code == "" {
		return coupon.Coupon{}, errors.New("empty coupon code")
	}

	kind := pricing.DiscountKind(record[2])
	if kind != pricing.DiscountPercentage && kind != pricing.DiscountFixed {
		return coupon.Coupon{}, errors.Errorf("unknown discount type %q", record[2])
	}

	value, err := decimal.NewFromString(record[3])
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "parse discount value")
	}
	minimum, err := decimal.NewFromString(record[4])
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "parse minimum amount")
	}
	validFrom, err := time.Parse(dateLayout, record[5])
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "parse valid_from")
	}
	validTo, err := time.Parse(dateLayout, record[6])
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "parse valid_to")
	}
	if !validTo.After(validFrom) {
		return coupon.Coupon{}, errors.New("valid_to must be after valid_from")
	}
	maxTotal, err := strconv.Atoi(record[7])
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "parse max_total_uses")
	}
	maxPerCustomer, err := strconv.Atoi(record[8])
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "parse max_uses_per_customer")
	}

	return coupon.Coupon{
		ID:                 uuid.NewString(),
		Code:               code,
		Description:        record[1],
		DiscountType:       kind,
		DiscountValue:      value,
		MinimumAmount:      minimum,
		ValidFrom:          validFrom,
		ValidTo:            validTo,
		MaxTotalUses:       maxTotal,
		MaxUsesPerCustomer: maxPerCustomer,
		Active:             true,
		CreatedAt:          time.Now().UTC(),
	}, nil
}
