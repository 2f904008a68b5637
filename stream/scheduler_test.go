// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package stream_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coatyio/dda-examples/dataset/stream"
	"github.com/stretchr/testify/assert"
)

func TestInlineSchedulerRunsSynchronously(t *testing.T) {
	ran := false
	stream.Inline.Schedule(context.Background(), func() { ran = true })
	assert.True(t, ran)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := stream.NewPool(2)
	var active int32
	var maxActive int32
	done := make(chan struct{})

	for i := 0; i < 6; i++ {
		go func() {
			pool.Schedule(context.Background(), func() {
				n := atomic.AddInt32(&active, 1)
				for {
					old := atomic.LoadInt32(&maxActive)
					if n <= old || atomic.CompareAndSwapInt32(&maxActive, old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&active, -1)
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}
	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxActive)), 2)
}

func TestPoolDefaultsToNumCPU(t *testing.T) {
	pool := stream.NewPool(0)
	assert.NotNil(t, pool)
}
