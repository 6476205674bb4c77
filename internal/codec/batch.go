package codec

import (
	"context"

	"golang.org/x/sync/errgroup"

	"fichecode/internal/fiche"
)

const defaultBatchLimit = 8

// Result is the outcome of decoding one payload of a batch.
type Result struct {
	Fiche fiche.Fiche
	Err   error
}

// DecodeAll decodes payloads concurrently, at most limit at a time, and
// returns one result per payload in input order. A failing payload does not
// stop the batch; only cancellation of ctx does.
func DecodeAll(ctx context.Context, payloads []string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = defaultBatchLimit
	}

	results := make([]Result, len(payloads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, payload := range payloads {
		i, payload := i, payload
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := Decode(payload)
			results[i] = Result{Fiche: f, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
