// Package sink stores downloaded images: in a local directory or in an S3
// bucket.
package sink

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/picdrop/internal/filex"
)

// Sink saves data under a name derived from name and returns where it went.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Dir writes into a local directory, never overwriting an existing file.
type Dir struct {
	dir string
}

// NewDir returns a sink writing into dir, created on first use.
func NewDir(dir string) *Dir {
	return &Dir{dir: dir}
}

func (d *Dir) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir, err := filex.EnsureDir(d.dir)
	if err != nil {
		return "", err
	}

	f, err := filex.CreateUnique(dir, name)
	if err != nil {
		return "", err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}
