package populator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"crashloader/internal/objectstore"
)

// stage copies src.From to src.To. Identical locations are a no-op. It
// reports whether a copy was made.
func (p *Populator) stage(ctx context.Context, src Source) (bool, error) {
	log := p.log.WithFields(logrus.Fields{
		"dataset": src.Dataset,
		"stage":   "copy",
		"from":    src.From.String(),
		"to":      src.To.String(),
	})
	if src.From == src.To {
		log.Info("source and destination objects are identical; skipping copy")
		return false, nil
	}

	log.Info("copying dataset")
	err := p.step("copy", func() error {
		if err := p.deps.Objects.Copy(ctx, src.From, src.To); err != nil {
			return err
		}
		if p.opts.VerifyCopy {
			return objectstore.Verify(ctx, p.deps.Objects, src.From, src.To)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("unable to copy dataset")
		return false, fmt.Errorf("stage %s: %w", src.Dataset, err)
	}
	return true, nil
}
