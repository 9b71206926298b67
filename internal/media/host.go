package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/google/uuid"
)

// Host stores media objects and serves them from public locations.
type Host interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
}

// Publish uploads a staged file under prefix with a fresh object key and returns its location.
func Publish(ctx context.Context, host Host, prefix string, file StagedFile) (string, error) {
	if host == nil {
		return "", ErrHostUnavailable
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return "", fmt.Errorf("open staged %s: %w", file.Field, err)
	}
	defer f.Close()

	key := path.Join(prefix, uuid.NewString()+file.Ext())
	location, err := host.Upload(ctx, key, file.ContentType, f)
	if err != nil {
		return "", fmt.Errorf("%w: upload %s: %w", ErrHostUnavailable, file.Field, err)
	}
	return location, nil
}
