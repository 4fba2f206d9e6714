package storage

import (
	"context"
	"errors"

	"balancerScope/internal/model"
)

// QuoteSink defines a sink for journaled quotes.
type QuoteSink interface {
	PutQuotes(ctx context.Context, quotes []model.QuoteRecord) error
}

// Multi fans quotes out to every sink and joins their errors.
type Multi []QuoteSink

func (m Multi) PutQuotes(ctx context.Context, quotes []model.QuoteRecord) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PutQuotes(ctx, quotes); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
