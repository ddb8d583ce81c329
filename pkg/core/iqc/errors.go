//
// Copyright (c) 2019 harmony-one
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package iqc

import "github.com/pkg/errors"

var (
	// ErrConfiguration is returned when group parameters cannot be derived
	// from the given inputs.
	ErrConfiguration = errors.New("invalid group configuration")
	// ErrDiscriminantNotFound is returned when no prime discriminant was
	// found within the allowed number of sieve windows.
	ErrDiscriminantNotFound = errors.Wrap(
		ErrConfiguration,
		"discriminant search did not converge",
	)
	ErrInvalidDiscriminantLength = errors.Wrap(
		ErrConfiguration,
		"discriminant length too small",
	)
	// ErrInvariantViolation marks an internally produced form that is not a
	// valid element of the group. It indicates a bug or a corrupted input and
	// is raised as a panic by the arithmetic.
	ErrInvariantViolation = errors.New("class group invariant violation")
	// ErrMalformedElement is returned when a serialized element does not
	// decode into a reduced form of the expected discriminant.
	ErrMalformedElement = errors.New("malformed class group element")
)

func invariant(msg string) {
	panic(errors.Wrap(ErrInvariantViolation, msg))
}
