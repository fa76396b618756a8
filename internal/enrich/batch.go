package enrich

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/open-collect/numisync/internal/resilience"
	"github.com/open-collect/numisync/internal/store"
)

// BatchOptions controls a batch enrichment run.
type BatchOptions struct {
	Filter store.Filter
	Limit  int
	// Concurrency bounds in-flight records. The catalog client's rate
	// limiter still serializes outbound requests, so raising this mostly
	// overlaps store and cache work.
	Concurrency int
	// RetryAttempts is how many times one record is attempted when the
	// catalog fails transiently. Zero means the default policy.
	RetryAttempts int
}

// BatchSummary totals a finished batch run.
type BatchSummary struct {
	Processed   int64
	Merged      int64
	NeedsReview int64
	NoMatch     int64
	Failed      int64
}

// RunBatch enriches every record matching the filter. Individual record
// failures are logged and counted, never abort the batch; only a quota or
// context stop ends the run early.
func (p *Pipeline) RunBatch(ctx context.Context, opts BatchOptions) (*BatchSummary, error) {
	records, err := p.store.All(ctx, opts.Filter)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list records")
	}
	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}
	if len(records) == 0 {
		zap.L().Info("enrich: nothing to do")
		return &BatchSummary{}, nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	zap.L().Info("enrich: starting batch",
		zap.Int("records", len(records)),
		zap.Int("concurrency", concurrency),
	)

	retryCfg := resilience.DefaultRetryConfig()
	if opts.RetryAttempts > 0 {
		retryCfg.MaxAttempts = opts.RetryAttempts
	}

	var summary BatchSummary
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, rec := range records {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			atomic.AddInt64(&summary.Processed, 1)

			cfg := retryCfg
			cfg.OnRetry = func(attempt int, err error) {
				zap.L().Warn("enrich: transient failure, retrying",
					zap.Int64("record", rec.ID),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			}
			res, err := resilience.DoVal(gctx, cfg, func(ctx context.Context) (*Result, error) {
				return p.Enrich(ctx, rec.ID)
			})
			switch {
			case err != nil:
				atomic.AddInt64(&summary.Failed, 1)
				zap.L().Error("enrich: record failed",
					zap.Int64("record", rec.ID),
					zap.Error(err),
				)
				return nil // keep going
			case res.NoMatch:
				atomic.AddInt64(&summary.NoMatch, 1)
			case res.NeedsReview:
				atomic.AddInt64(&summary.NeedsReview, 1)
			default:
				atomic.AddInt64(&summary.Merged, 1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return &summary, eris.Wrap(err, "enrich: batch")
	}

	zap.L().Info("enrich: batch complete",
		zap.Int64("processed", summary.Processed),
		zap.Int64("merged", summary.Merged),
		zap.Int64("needs_review", summary.NeedsReview),
		zap.Int64("no_match", summary.NoMatch),
		zap.Int64("failed", summary.Failed),
	)
	return &summary, nil
}
