package scene

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/assets"
)

// LoadResult summarizes a LoadScene call.
type LoadResult struct {
	Loaded    int
	Failed    int
	Instances int
	Elapsed   time.Duration
}

// LoadScene loads every entity of sc in order. Entities that fail to load
// are logged and skipped. Loading stops early when ctx is cancelled or the
// renderer is closed or cleared, and that error is returned.
func (r *Renderer) LoadScene(ctx context.Context, sc *assets.Scene) (LoadResult, error) {
	start := time.Now()
	var res LoadResult
	for i, e := range sc.Entities {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := r.LoadEntity(SourceFromAsset(e))
		switch {
		case err == nil:
			res.Loaded++
			res.Instances += len(e.Transforms)
		case errors.Is(err, ErrClosed), errors.Is(err, ErrCleared):
			return res, err
		default:
			res.Failed++
			r.log.Error("skipping entity", zap.Int("entity", i), zap.Error(err))
		}
	}
	res.Elapsed = time.Since(start)

	r.log.Info("scene loaded",
		zap.String("scene", sc.Name),
		zap.Int("entities", res.Loaded),
		zap.Int("failed", res.Failed),
		zap.Int("instances", res.Instances),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}
