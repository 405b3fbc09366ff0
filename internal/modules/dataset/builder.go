package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds parallel history requests against the source.
const maxConcurrentFetches = 8

// Builder fetches price histories and aligns them into a Dataset.
type Builder struct {
	source domain.PriceSource
	log    zerolog.Logger
}

// NewBuilder creates a dataset builder over source.
func NewBuilder(source domain.PriceSource, log zerolog.Logger) *Builder {
	return &Builder{
		source: source,
		log:    log.With().Str("component", "dataset_builder").Logger(),
	}
}

// Load fetches every ticker's history in [start, end] and builds the dataset.
func (b *Builder) Load(ctx context.Context, tickers []string, start, end time.Time) (*Dataset, error) {
	if len(tickers) == 0 {
		return nil, domain.NewValidationError("tickers", "at least one ticker is required")
	}

	began := time.Now()
	var (
		mu     sync.Mutex
		series = make(map[string]domain.PriceSeries, len(tickers))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, ticker := range tickers {
		g.Go(func() error {
			history, err := b.source.History(gctx, ticker, start, end)
			if err != nil {
				return fmt.Errorf("failed to fetch price history for %s: %w", ticker, err)
			}
			mu.Lock()
			series[ticker] = history
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds, err := Build(series, tickers)
	if err != nil {
		return nil, err
	}

	b.log.Debug().
		Int("tickers", len(tickers)).
		Int("dates", len(ds.Dates)).
		Int("returns", ds.Len()).
		Dur("duration", time.Since(began)).
		Msg("Built returns dataset")

	return ds, nil
}
