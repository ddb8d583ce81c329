//
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package vdf

import (
	"context"
	"math/big"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// VerifyItem is one output to check in a batch.
type VerifyItem struct {
	Construction Construction
	X            *big.Int
	T            uint64
	Output       *Output
}

// VerifyAll verifies the items concurrently on at most workers goroutines,
// defaulting to the number of CPUs. The first malformed item aborts the batch
// with its error; otherwise the verdicts are returned in item order.
func VerifyAll(
	ctx context.Context,
	items []VerifyItem,
	workers int,
) ([]bool, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]bool, len(items))
	eg, verifyCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i := range items {
		i := i
		eg.Go(func() error {
			select {
			case <-verifyCtx.Done():
				return verifyCtx.Err()
			default:
			}

			item := items[i]
			ok, err := item.Construction.Verify(item.X, item.T, item.Output)
			if err != nil {
				return errors.Wrapf(err, "item %d", i)
			}

			results[i] = ok
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, "verify all")
	}

	return results, nil
}
