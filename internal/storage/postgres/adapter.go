package postgres

import (
	"context"

	"crashloader/internal/storage"
)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(cfg.DSN, cfg.Objects, cfg.Logger)
	})
}
