//
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package vdf

import (
	"github.com/pkg/errors"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/core/iqc"
)

var (
	// ErrInvalidIterations is returned for iteration counts that are
	// negative, fractional or otherwise not representable.
	ErrInvalidIterations = errors.Wrap(iqc.ErrConfiguration, "invalid iterations")
	// ErrUnknownConstruction is returned by New for unregistered names.
	ErrUnknownConstruction = errors.Wrap(
		iqc.ErrConfiguration,
		"unknown vdf construction",
	)
	ErrInvalidParams = errors.Wrap(iqc.ErrConfiguration, "invalid vdf params")
	// ErrProofRejected is returned by callers that refuse to continue after
	// a proof failed the verification equation.
	ErrProofRejected = errors.New("proof rejected")
	// ErrMalformedOutput is returned when output bytes cannot be decoded into
	// group elements of the construction.
	ErrMalformedOutput = iqc.ErrMalformedElement
)

// recoverInvariant turns an invariant panic raised by the group arithmetic
// into a returned error. Any other panic is propagated.
func recoverInvariant(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok && errors.Is(e, iqc.ErrInvariantViolation) {
			*err = e
			return
		}

		panic(r)
	}
}
