package objectstore

import (
	"context"

	intconfig "citibike/internal/config"
)

// Store fetches whole objects by key.
type Store interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	// Ping checks the store is reachable. Failures are ConnectionErrors.
	Ping(ctx context.Context) error
}

// New returns a DirStore when SOURCE_DIR is set and an anonymous S3Store
// otherwise.
func New(env intconfig.Env) (Store, error) {
	if env.SourceDir != "" {
		return DirStore{Root: env.SourceDir}, nil
	}
	s, err := NewS3Store(env.S3Region, env.S3Endpoint, env.S3Bucket)
	if err != nil {
		return nil, err
	}
	return s, nil
}
