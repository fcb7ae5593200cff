package objectstore

import (
	"context"
	"os"
	"path/filepath"

	"citibike/internal/domain"

	"github.com/pkg/errors"
)

// DirStore serves keys from a local directory, for offline runs.
type DirStore struct {
	Root string
}

func (d DirStore) Ping(ctx context.Context) error {
	info, err := os.Stat(d.Root)
	if err != nil {
		return domain.ConnectionError{Target: "source dir " + d.Root, Err: err}
	}
	if !info.IsDir() {
		return domain.ConnectionError{Target: "source dir " + d.Root, Err: errors.New("not a directory")}
	}
	return nil
}

func (d DirStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Join(d.Root, filepath.FromSlash(key))
	content, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.SourceUnavailableError{Key: key, Err: err}
		}
		return nil, errors.Wrapf(err, "reading file %v", name)
	}
	if len(content) == 0 {
		return nil, domain.SourceUnavailableError{Key: key, Err: errors.New("empty file")}
	}
	return content, nil
}
