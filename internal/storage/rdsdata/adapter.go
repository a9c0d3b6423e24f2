package rdsdata

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/rdsdata"

	"crashloader/internal/storage"
)

// newClient builds the Data API client; tests replace it to avoid AWS.
var newClient = func(cfg storage.Config) dataAPI {
	return rdsdata.NewFromConfig(cfg.AWS)
}

func init() {
	storage.Register("rdsdata", func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(newClient(cfg), Config{ClusterARN: cfg.ClusterARN, SecretARN: cfg.SecretARN}, cfg.Logger)
	})
}
