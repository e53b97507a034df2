package assets

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// LoadShaderStages loads the SPIR-V modules at paths concurrently and returns
// their words in the same order. The first failure cancels the rest.
func (am *AssetManager) LoadShaderStages(ctx context.Context, paths ...string) ([][]uint32, error) {
	stages := make([][]uint32, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := am.LoadAsset(path, nil)
			if err != nil {
				return err
			}
			code, ok := res.Data.([]uint32)
			if !ok {
				return errors.Newf("%s is not a shader module", path)
			}
			stages[i] = code
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "loading shader stages")
	}
	return stages, nil
}
