// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package dataset

import (
	"fmt"

	"github.com/coatyio/dda-examples/dataset/stream"
)

// Env bundles the execution environment every dataset operation needs:
// the compute scheduler and the separateThread switch (spec §4.2, §6).
// Per spec §9 ("Globals"), this is passed explicitly rather than held in a
// package-level singleton.
type Env struct {
	// Scheduler executes the payload of map/flatMap/sketch when
	// SeparateThread is true. Typically a *stream.Pool sized by
	// computePoolSize.
	Scheduler stream.Scheduler

	// SeparateThread causes LocalDataSet operations to hop onto Scheduler.
	// When false they run inline on the goroutine stream.FromFunc starts for
	// each subscription, which is still not the subscribing caller's
	// goroutine. Default true.
	SeparateThread bool
}

// NewEnv builds an Env with the given compute pool size (0 = NumCPU,
// matching spec §6's computePoolSize default) and separateThread setting.
func NewEnv(computePoolSize int, separateThread bool) *Env {
	return &Env{
		Scheduler:      stream.NewPool(computePoolSize),
		SeparateThread: separateThread,
	}
}

// DefaultEnv returns the spec §6 defaults: computePoolSize = NumCPU,
// separateThread = true.
func DefaultEnv() *Env {
	return NewEnv(0, true)
}

func (e *Env) scheduler() stream.Scheduler {
	if !e.SeparateThread {
		return stream.Inline
	}
	if e.Scheduler == nil {
		return stream.Inline
	}
	return e.Scheduler
}

// safely runs fn, converting both a panic and a returned error from
// user-supplied Map/Sketch code into an ErrUserCodeFailure, so callers have
// one sentinel to check regardless of which way the user code misbehaved.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUserCodeFailure, r)
		}
	}()
	if err = fn(); err != nil {
		err = fmt.Errorf("%w: %v", ErrUserCodeFailure, err)
	}
	return err
}
