package repo

import (
	"context"
	"time"
)

const queryTimeout = 5 * time.Second

func connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), queryTimeout)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, queryTimeout)
}

func nullableRating(r *int) any {
	if r == nil {
		return nil
	}
	return int64(*r)
}

func ratingPtr(valid bool, v int64) *int {
	if !valid {
		return nil
	}
	r := int(v)
	return &r
}
