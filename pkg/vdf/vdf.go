//
// Copyright (c) 2019 harmony-one
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package vdf

import (
	"context"
	"math/big"
	"sync"
)

// VDF is the struct holding the state of one delay computation. Difficulty is
// carried through as an unsigned int, because we can't travel backwards in
// time (yet ;) )
type VDF struct {
	construction Construction
	difficulty   uint64
	input        *big.Int

	mu         sync.Mutex
	output     *Output
	outputChan chan *Output
	finished   bool
}

// NewVDF creates a new instance of VDF for the seed input.
func NewVDF(
	construction Construction,
	difficulty uint64,
	input *big.Int,
) *VDF {
	return &VDF{
		construction: construction,
		difficulty:   difficulty,
		input:        new(big.Int).Set(input),
		outputChan:   make(chan *Output, 1),
	}
}

// GetOutputChannel returns the vdf output channel. It receives the output
// once Execute completes.
func (vdf *VDF) GetOutputChannel() <-chan *Output {
	return vdf.outputChan
}

// Execute runs the VDF until it's finished and puts the result into the output
// channel.
func (vdf *VDF) Execute(ctx context.Context) error {
	vdf.mu.Lock()
	vdf.finished = false
	vdf.mu.Unlock()

	out, err := vdf.construction.Solve(ctx, vdf.input, vdf.difficulty)
	if err != nil {
		return err
	}

	vdf.mu.Lock()
	vdf.output = out
	vdf.finished = true
	vdf.mu.Unlock()

	select {
	case vdf.outputChan <- out:
	default:
	}

	return nil
}

// Verify runs the verification of a generated output.
func (vdf *VDF) Verify(out *Output) (bool, error) {
	return vdf.construction.Verify(vdf.input, vdf.difficulty, out)
}

// IsFinished returns whether the vdf execution is finished or not.
func (vdf *VDF) IsFinished() bool {
	vdf.mu.Lock()
	defer vdf.mu.Unlock()
	return vdf.finished
}

// GetOutput returns the vdf output, which is nil if the vdf is not finished.
func (vdf *VDF) GetOutput() *Output {
	vdf.mu.Lock()
	defer vdf.mu.Unlock()
	return vdf.output
}
