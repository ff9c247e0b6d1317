package main

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
	// maxFiles is bounded by the width of the per-code file bitmask.
	maxFiles = bits.UintSize
)

// writeFunc persists one batch of rules.
type writeFunc func(ctx context.Context, rules []coupon.Rule) error

type importStats struct {
	written    atomic.Int64
	duplicates atomic.Int64
}

// importFiles loads coupons from gzip-compressed CSV files in three
// concurrent passes:
//
//  1. build a bloom filter of the codes in every file;
//  2. track codes that another file's filter may also hold, with a bitmask
//     of the files that really contain them;
//  3. write every file, skipping codes owned by an earlier file.
//
// A code listed in several files is taken from the first file listing it.
// Within one file, a later row for the same code wins.
func importFiles(ctx context.Context, files []string, batchSize int, write writeFunc) (*importStats, error) {
	if len(files) > maxFiles {
		return nil, errors.Errorf("too many files: %d > %d", len(files), maxFiles)
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return nil, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: finding codes shared between files")
	owners, err := findSharedCodes(ctx, files, filters)
	if err != nil {
		return nil, errors.Wrap(err, "find shared codes")
	}

	slog.Info("pass 3: writing coupons", slog.Int("shared_codes", len(owners)))
	stats := &importStats{}
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			return writeFile(ctx, i, f, owners, batchSize, write, stats)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "write coupons")
	}

	return stats, nil
}

func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			if err := streamCouponFile(ctx, f, func(rule coupon.Rule) error {
				filter.AddString(rule.Code)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("file", i+1), slog.Uint64("codes", count))
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}

			slog.Info("pass 1 complete", slog.Int("file", i+1), slog.Uint64("total_codes", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findSharedCodes returns, for every code that may appear in more than one
// file, the bitmask of files that contain it. False bloom positives only add
// single-bit entries.
func findSharedCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]uint, error) {
	results := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			candidates := make(map[string]uint)
			fileBit := uint(1) << uint(i)

			if err := streamCouponFile(ctx, f, func(rule coupon.Rule) error {
				for j, filter := range filters {
					if j != i && filter.TestString(rule.Code) {
						candidates[rule.Code] |= fileBit
						break
					}
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "scan file %d for shared codes", i+1)
			}

			slog.Info("pass 2 complete", slog.Int("file", i+1), slog.Int("candidates", len(candidates)))
			results[i] = candidates
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, r := range results {
		for code, mask := range r {
			merged[code] |= mask
		}
	}
	return merged, nil
}

func writeFile(
	ctx context.Context,
	idx int,
	path string,
	owners map[string]uint,
	batchSize int,
	write writeFunc,
	stats *importStats,
) error {
	batch := make([]coupon.Rule, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := write(ctx, batch); err != nil {
			return err
		}
		stats.written.Add(int64(len(batch)))
		batch = batch[:0]
		return nil
	}

	if err := streamCouponFile(ctx, path, func(rule coupon.Rule) error {
		if mask, ok := owners[rule.Code]; ok && bits.TrailingZeros(mask) != idx {
			stats.duplicates.Add(1)
			return nil
		}
		batch = append(batch, rule)
		if len(batch) == batchSize {
			return flush()
		}
		return nil
	}); err != nil {
		return errors.Wrapf(err, "import file %d", idx+1)
	}

	if err := flush(); err != nil {
		return errors.Wrapf(err, "import file %d", idx+1)
	}
	slog.Info("pass 3 complete", slog.Int("file", idx+1), slog.String("path", path))
	return nil
}

// streamCouponFile opens a gzip-compressed CSV file and calls fn for each
// coupon row. A leading header row starting with "code" is skipped.
func streamCouponFile(ctx context.Context, path string, fn func(rule coupon.Rule) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "code") {
			continue
		}

		rule, err := parseRecord(record)
		if err != nil {
			return errors.Wrapf(err, "%s line %d", path, line)
		}
		if err := fn(rule); err != nil {
			return err
		}
	}
}

// parseRecord reads code,discount_type,amount,apply_after_tax[,description].
func parseRecord(record []string) (coupon.Rule, error) {
	if len(record) < 4 {
		return coupon.Rule{}, errors.Errorf("expected at least 4 fields, got %d", len(record))
	}

	code := strings.ToUpper(strings.TrimSpace(record[0]))
	if code == "" {
		return coupon.Rule{}, errors.New("empty code")
	}

	discountType := coupon.DiscountType(strings.TrimSpace(record[1]))
	if !discountType.Valid() {
		return coupon.Rule{}, errors.Errorf("unknown discount type %q", record[1])
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return coupon.Rule{}, errors.Wrap(err, "parse amount")
	}
	if amount.IsNegative() {
		return coupon.Rule{}, errors.Errorf("negative amount %s", amount)
	}

	applyAfterTax := strings.ToLower(strings.TrimSpace(record[3]))
	if applyAfterTax != coupon.MetaYes && applyAfterTax != coupon.MetaNo && applyAfterTax != "" {
		return coupon.Rule{}, errors.Errorf("apply_after_tax must be yes or no, got %q", record[3])
	}

	rule := coupon.Rule{
		Code:          code,
		DiscountType:  discountType,
		Amount:        amount,
		ApplyAfterTax: coupon.MetaBool(applyAfterTax),
	}
	if len(record) > 4 {
		rule.Description = strings.TrimSpace(record[4])
	}
	return rule, nil
}
