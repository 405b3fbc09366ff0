package domain

import (
	"context"
	"time"
)

// PriceSource retrieves adjusted daily closes for a ticker within [start, end].
// Implementations return an empty series (not an error) when the ticker simply
// has no data in the window; transport failures are errors.
type PriceSource interface {
	History(ctx context.Context, ticker string, start, end time.Time) (PriceSeries, error)
}
