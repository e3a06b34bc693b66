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

// Package growbuf 提供可增长的 read-ahead 缓冲区
//
// Buffer 同时服务于两个消费者
//
// 1) 匹配引擎: 通过 io.Reader 接口不断向前拉取数据
// 2) 切割逻辑: 在确认分隔符位置之后 通过 Peek/Drain 取出并释放窗口头部的数据
//
// 底层数据源只会被读取一次 窗口只保留 `最后一次 Drain 的位置` 到 `匹配引擎已读取位置` 之间的数据
package growbuf

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

// Stats Buffer 运行统计
type Stats struct {
	Pulled      int64 // 从底层数据源拉取的字节数
	Drained     int64 // 已经从窗口头部释放的字节数
	PeakWindow  int   // 窗口 (pending) 的峰值长度
	PeakBacklog int   // 已拉取但尚未交付给匹配引擎的峰值字节数
}

// Buffer 可增长的 read-ahead 缓冲区
//
// pending 由 pooled 的 ByteBuffer 与头部偏移 off 组成 即 pending = buf.B[off:]
// handed 为 pending 头部已经通过 Read 交付给匹配引擎的字节数 0 <= handed <= Len()
//
// Buffer 不支持并发访问 所有方法都会进行 borrow 检查 嵌套或者并发调用会直接 panic
type Buffer struct {
	backing io.Reader
	eof     bool

	buf    *bytebufferpool.ByteBuffer
	off    int
	handed int

	borrowed atomic.Bool
	stats    Stats
}

// New 创建并返回 *Buffer 实例 Buffer 独占 r 的所有权
func New(r io.Reader) *Buffer {
	return &Buffer{
		backing: r,
		buf:     bytebufferpool.Get(),
	}
}

func (b *Buffer) borrow() {
	if !b.borrowed.CompareAndSwap(false, true) {
		panic("growbuf: buffer already borrowed")
	}
}

func (b *Buffer) release() {
	b.borrowed.Store(false)
}

func (b *Buffer) pending() []byte {
	return b.buf.B[b.off:]
}

// Len 返回窗口中尚未释放的字节数
func (b *Buffer) Len() int {
	return len(b.buf.B) - b.off
}

// Handed 返回已经交付给匹配引擎但尚未释放的字节数
func (b *Buffer) Handed() int {
	return b.handed
}

// Stats 返回运行统计
func (b *Buffer) Stats() Stats {
	return b.stats
}

// Read 实现 io.Reader 接口 供匹配引擎拉取数据
//
// 当未交付的积压数据 (backlog) 不足 len(p) 时 直接从底层数据源读取到 p 并追加到窗口尾部
// 如果此前没有 backlog 那 p 中已经是按序的数据 无需再次拷贝
// 否则需要优先交付 backlog 从 pending[handed:] 重新拷贝 len(p) 字节至 p
//
// 只有当底层数据源已经耗尽且没有 backlog 时才会返回 (0, io.EOF)
// 底层数据源返回的非 EOF 错误会原样返回 同一次读取到的字节仍保留在窗口中
func (b *Buffer) Read(p []byte) (int, error) {
	b.borrow()
	defer b.release()

	if len(p) == 0 {
		return 0, nil
	}

	backlog := b.Len() - b.handed
	if backlog >= len(p) || b.eof {
		if backlog == 0 {
			return 0, io.EOF
		}
		return b.handout(p), nil
	}

	b.compact()
	n, err := b.backing.Read(p)
	if n > 0 {
		b.buf.B = append(b.buf.B, p[:n]...)
		b.stats.Pulled += int64(n)
		b.updatePeak()
	}
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return 0, err
		}
		b.eof = true
	}

	if backlog > 0 {
		return b.handout(p), nil
	}
	b.handed += n
	if n == 0 && b.eof {
		return 0, io.EOF
	}
	return n, nil
}

// handout 从 pending[handed:] 交付数据至 p
func (b *Buffer) handout(p []byte) int {
	n := copy(p, b.pending()[b.handed:])
	b.handed += n
	return n
}

// compact 在窗口增长前回收头部已经释放的空间
//
// 仅当已释放的空间不小于存活数据时才进行搬移 避免频繁拷贝
func (b *Buffer) compact() {
	if b.off == 0 {
		return
	}
	live := b.Len()
	if live == 0 {
		b.buf.B = b.buf.B[:0]
		b.off = 0
		return
	}
	if b.off < live {
		return
	}
	copy(b.buf.B, b.buf.B[b.off:])
	b.buf.B = b.buf.B[:live]
	b.off = 0
}

func (b *Buffer) updatePeak() {
	if l := b.Len(); l > b.stats.PeakWindow {
		b.stats.PeakWindow = l
	}
	if l := b.Len() - b.handed; l > b.stats.PeakBacklog {
		b.stats.PeakBacklog = l
	}
}

// Peek 返回窗口头部最多 n 字节的视图 不修改任何状态
//
// 返回的切片仅在下一次 Read 之前有效 如有保留需求 请拷贝一份
func (b *Buffer) Peek(n int) []byte {
	b.borrow()
	defer b.release()

	p := b.pending()
	if n < 0 {
		n = 0
	}
	if n > len(p) {
		n = len(p)
	}
	return p[:n]
}

// Drain 从窗口头部释放 n 字节 并返回被释放的数据
//
// 被释放的字节必须已经交付给匹配引擎 即 n <= Handed()
// 违反约定说明两个消费者之间的不变量已被破坏 此时直接 panic
//
// 返回的切片仅在下一次 Read 之前有效
func (b *Buffer) Drain(n int) []byte {
	b.borrow()
	defer b.release()

	if n < 0 || n > b.handed {
		panic(fmt.Sprintf("growbuf: drain %d bytes out of range (handed %d, pending %d)", n, b.handed, b.Len()))
	}

	p := b.pending()[:n]
	b.off += n
	b.handed -= n
	b.stats.Drained += int64(n)
	return p
}

// DrainAll 释放窗口中所有字节 handed 重置为 0
//
// 返回的切片仅在下一次 Read 之前有效
func (b *Buffer) DrainAll() []byte {
	b.borrow()
	defer b.release()

	p := b.pending()
	b.off = len(b.buf.B)
	b.handed = 0
	b.stats.Drained += int64(len(p))
	return p
}

// Close 归还窗口存储 如果底层数据源实现了 io.Closer 则一并关闭
//
// Close 之后不允许再调用 Buffer 的任何方法
func (b *Buffer) Close() error {
	b.borrow()
	defer b.release()

	if b.buf != nil {
		bytebufferpool.Put(b.buf)
		b.buf = nil
	}
	backing := b.backing
	b.backing = nil
	if c, ok := backing.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
