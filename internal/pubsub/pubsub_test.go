// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPubSub(t *testing.T) {
	bus := New[int]()

	const workers = 10
	var queues []*Queue[int]
	for i := 0; i < workers; i++ {
		queues = append(queues, bus.Subscribe(10))
	}
	assert.Equal(t, workers, bus.Num())

	for n := 0; n < 20; n++ {
		bus.Publish(n)
	}

	var total atomic.Int64
	var wg sync.WaitGroup
	for _, q := range queues {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer bus.Unsubscribe(q)

			var got []int
			for {
				v, ok := q.Pop(context.Background(), 100*time.Millisecond)
				if !ok {
					break
				}
				got = append(got, v)
			}
			total.Add(int64(len(got)))
			assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
			assert.Equal(t, int64(10), q.Dropped())
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), total.Load())
	assert.Equal(t, 0, bus.Num())
}

func TestQueuePopCanceled(t *testing.T) {
	bus := New[string]()
	q := bus.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Pop(ctx, time.Minute)
	assert.False(t, ok)

	bus.Unsubscribe(q)
	assert.False(t, q.Push("a"))
	_, ok = q.Pop(context.Background(), time.Minute)
	assert.False(t, ok)
}
