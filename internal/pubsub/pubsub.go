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

// Package pubsub 将消息广播给所有订阅者
//
// 订阅者消费不及时的时候新消息会被直接丢弃 Publish 永远不会阻塞
package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Queue 订阅队列
type Queue[T any] struct {
	id      string
	ch      chan T
	closed  atomic.Bool
	dropped atomic.Int64
}

func newQueue[T any](size int) *Queue[T] {
	if size <= 0 {
		size = 1
	}
	return &Queue[T]{
		id: uuid.NewString(),
		ch: make(chan T, size),
	}
}

// ID 队列唯一标识
func (q *Queue[T]) ID() string {
	return q.id
}

// Pop 弹出一个元素 操作会 block 直到有元素 超时或者 ctx 被取消
func (q *Queue[T]) Pop(ctx context.Context, timeout time.Duration) (T, bool) {
	var zero T
	if q.closed.Load() {
		return zero, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v, ok := <-q.ch:
		return v, ok
	case <-timer.C:
		return zero, false
	case <-ctx.Done():
		return zero, false
	}
}

// Push 推送元素 队列已满时丢弃并返回 false
func (q *Queue[T]) Push(v T) bool {
	if q.closed.Load() {
		return false
	}

	select {
	case q.ch <- v:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Dropped 返回因队列已满被丢弃的元素数量
func (q *Queue[T]) Dropped() int64 {
	return q.dropped.Load()
}

func (q *Queue[T]) close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.ch)
	}
}

type PubSub[T any] struct {
	mut    sync.RWMutex
	queues map[string]*Queue[T]
}

func New[T any]() *PubSub[T] {
	return &PubSub[T]{
		queues: make(map[string]*Queue[T]),
	}
}

// Num 返回订阅者数量
func (p *PubSub[T]) Num() int {
	p.mut.RLock()
	defer p.mut.RUnlock()

	return len(p.queues)
}

func (p *PubSub[T]) Subscribe(size int) *Queue[T] {
	p.mut.Lock()
	defer p.mut.Unlock()

	q := newQueue[T](size)
	p.queues[q.ID()] = q
	return q
}

func (p *PubSub[T]) Publish(v T) {
	p.mut.RLock()
	defer p.mut.RUnlock()

	for _, q := range p.queues {
		q.Push(v)
	}
}

// Unsubscribe 取消订阅并关闭 q
func (p *PubSub[T]) Unsubscribe(q *Queue[T]) {
	p.mut.Lock()
	defer p.mut.Unlock()

	delete(p.queues, q.ID())
	q.close()
}
