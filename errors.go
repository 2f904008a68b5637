// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package dataset

import "errors"

// Error taxonomy per spec §7. These are sentinel causes; wrap them with
// fmt.Errorf("...: %w", ...) for context and check with errors.Is.
var (
	// ErrUserCodeFailure: a Map or Sketch implementation returned an error
	// or panicked. The producing dataset remains valid for retries.
	ErrUserCodeFailure = errors.New("dataset: user code failure")

	// ErrTypeMismatch: zip was attempted between incompatible dataset
	// shapes (e.g. Local.zip(Parallel)).
	ErrTypeMismatch = errors.New("dataset: type mismatch")

	// ErrShapeMismatch: Parallel.zip with an unequal child count.
	ErrShapeMismatch = errors.New("dataset: shape mismatch")

	// ErrObjectNotFound: an RPC referenced an unknown object id.
	ErrObjectNotFound = errors.New("dataset: object not found")

	// ErrSessionBusy: a second request arrived on a session that already
	// has an in-flight subscription.
	ErrSessionBusy = errors.New("dataset: session busy")

	// ErrTransportError: the RPC connection was lost or could not be
	// established. Partial results already delivered remain valid.
	ErrTransportError = errors.New("dataset: transport error")

	// ErrCancelled: the subscriber disposed the subscription. Not delivered
	// to subscribers as a stream error; no code path in this module
	// currently returns it.
	ErrCancelled = errors.New("dataset: cancelled")

	// ErrNotNameable: a remote operation was attempted with a Map/Sketch
	// value that cannot be identified by a registered name, so it cannot be
	// serialized across the RPC boundary. See opregistry.Named.
	ErrNotNameable = errors.New("dataset: operation is not a registered, nameable operation")

	// ErrEmptyParallel: reserved for implementations that choose to forbid
	// zero-child Parallel datasets. This module does not use it (see
	// DESIGN.md Open Question (a)); kept so callers can recognize the
	// documented alternative.
	ErrEmptyParallel = errors.New("dataset: parallel dataset has no children")
)
