package cod

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LoadAll loads several COD files concurrently, at most limit at a time
// (limit <= 0 means no limit). Results are returned in the order of paths.
// The first failure cancels the files that have not started yet.
func (p *Parser) LoadAll(ctx context.Context, paths []string, limit int) ([]*Document, error) {
	docs := make([]*Document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := p.Load(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.logger.Debug("loaded COD files", zap.Int("count", len(paths)))
	return docs, nil
}

var treeOptions = cmp.Options{
	cmpopts.EquateEmpty(),
	cmpopts.IgnoreFields(Document{}, "Diagnostics", "Source", "FromCache"),
	cmpopts.IgnoreUnexported(Document{}),
}

// Equal reports whether two documents hold structurally equal object trees.
func Equal(a, b *Document) bool {
	return cmp.Equal(a, b, treeOptions)
}

// Diff returns a human-readable difference between two object trees, or ""
// if they are equal.
func Diff(a, b *Document) string {
	return cmp.Diff(a, b, treeOptions)
}
