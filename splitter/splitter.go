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

// Package splitter 基于多模式匹配对任意字节流进行流式切割
//
// 匹配引擎通过 source 从 growbuf.Buffer 拉取数据 Iterator 则在匹配确认之后
// 从同一个 Buffer 的头部取出分段数据并释放分隔符 两者交替执行 从不嵌套
//
//	             +---------------+
//	             |   io.Reader   |
//	             +-------+-------+
//	                     |
//	             +-------v-------+
//	             | growbuf.Buffer| <----- Peek / Drain -----+
//	             +-------+-------+                          |
//	                     | Read                             |
//	             +-------v-------+    Match{Start,End}  +---+------+
//	             |    matcher    | -------------------> | Iterator |
//	             +---------------+                      +----------+
//
// 产出的分段永远不为空 位于开头/结尾或者连续出现的分隔符都不会产生空分段
package splitter

import (
	"fmt"
	"io"
	"iter"

	"github.com/pkg/errors"

	"github.com/packetd/splitby/internal/growbuf"
	"github.com/packetd/splitby/logger"
	"github.com/packetd/splitby/matcher"
	"github.com/packetd/splitby/matcher/ahocorasick"
)

// source 供匹配引擎使用的只读视图 仅将 Read 委托给共享的 Buffer
type source struct {
	buf *growbuf.Buffer
}

func (s source) Read(p []byte) (int, error) {
	return s.buf.Read(p)
}

// Segment 切割后的分段
type Segment struct {
	Index  int    // 分段序号 从 0 开始
	Offset int64  // 分段在数据流中的起始偏移
	Data   []byte // 分段内容 调用方独占
}

// Stats Iterator 运行统计
type Stats struct {
	Segments   int
	Delimiters int
	Buffer     growbuf.Stats
}

// Iterator 分段迭代器
//
// cursor 为已经从 Buffer 中释放的累计字节数 (分段 + 分隔符)
// 在任何时刻 cursor 都等于 Buffer 的 Stats().Drained
type Iterator struct {
	buf     *growbuf.Buffer
	matches matcher.Matches

	cursor     int64
	index      int
	delimiters int

	tailDrained bool // 已经释放过剩余数据 下一次调用即结束
	exhausted   bool
}

// SplitBy 使用 m 对 r 进行切割 Iterator 独占 r 的所有权
func SplitBy(r io.Reader, m matcher.Matcher) *Iterator {
	buf := growbuf.New(r)
	return &Iterator{
		buf:     buf,
		matches: m.StreamFind(source{buf: buf}),
	}
}

// New 使用 cfg.Delimiters 编译匹配器并返回 *Iterator 实例
func New(r io.Reader, cfg Config) (*Iterator, error) {
	ac, err := cfg.Matcher()
	if err != nil {
		return nil, err
	}
	return SplitBy(r, ac), nil
}

// step 推进一个匹配 可能产出空分段
//
// 返回 io.EOF 代表迭代结束 其他错误原样返回且不修改任何状态
func (it *Iterator) step() (Segment, error) {
	if it.exhausted || it.tailDrained {
		it.exhausted = true
		return Segment{}, io.EOF
	}

	m, err := it.matches.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			readErrorsTotal.Inc()
			return Segment{}, err
		}

		rest := it.buf.DrainAll()
		if len(rest) == 0 {
			it.exhausted = true
			return Segment{}, io.EOF
		}
		seg := Segment{
			Offset: it.cursor,
			Data:   append([]byte(nil), rest...),
		}
		it.cursor += int64(len(rest))
		it.tailDrained = true
		return seg, nil
	}

	if m.Start < it.cursor || m.End < m.Start {
		panic(fmt.Sprintf("splitter: match [%d, %d) out of order (cursor %d)", m.Start, m.End, it.cursor))
	}

	it.delimiters++
	delimitersTotal.Inc()

	size := int(m.Start - it.cursor)
	data := it.buf.Peek(size)
	if len(data) != size {
		panic(fmt.Sprintf("splitter: peek %d bytes but only %d buffered", size, len(data)))
	}
	seg := Segment{
		Offset: it.cursor,
		Data:   append([]byte(nil), data...),
	}

	// 分段内容已经拷贝 这里只负责释放分段与分隔符占用的窗口
	it.buf.Drain(int(m.End - it.cursor))
	it.cursor = m.End
	return seg, nil
}

// NextSegment 返回下一个非空分段
//
// 迭代结束时返回 io.EOF 数据源的 IO 错误会原样返回 此时 Iterator 状态保持不变
// 调用方可以选择继续调用 但对于只能顺序读取的数据源 重试通常没有意义
func (it *Iterator) NextSegment() (Segment, error) {
	for {
		seg, err := it.step()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debugf("splitter exhausted: segments=%d, delimiters=%d, bytes=%d, peakWindow=%d",
					it.index, it.delimiters, it.cursor, it.buf.Stats().PeakWindow)
			}
			return Segment{}, err
		}
		if len(seg.Data) == 0 {
			continue
		}

		seg.Index = it.index
		it.index++
		segmentsTotal.Inc()
		segmentBytesTotal.Add(float64(len(seg.Data)))
		return seg, nil
	}
}

// Next 返回下一个非空分段的内容
func (it *Iterator) Next() ([]byte, error) {
	seg, err := it.NextSegment()
	if err != nil {
		return nil, err
	}
	return seg.Data, nil
}

// All 返回惰性的分段序列
//
// 出现 IO 错误时产出 (nil, err) 是否继续由调用方决定 yield 返回 false 即停止
func (it *Iterator) All() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			b, err := it.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(b, err) {
				return
			}
		}
	}
}

// Offset 返回已经处理的累计字节数
func (it *Iterator) Offset() int64 {
	return it.cursor
}

// Stats 返回运行统计
func (it *Iterator) Stats() Stats {
	return Stats{
		Segments:   it.index,
		Delimiters: it.delimiters,
		Buffer:     it.buf.Stats(),
	}
}

// Close 释放 Buffer 并放弃底层数据源
func (it *Iterator) Close() error {
	it.exhausted = true
	return it.buf.Close()
}

// Split 对 r 进行完整切割并返回所有分段 仅适用于数据量可控的场景
func Split(r io.Reader, delimiters ...[]byte) ([][]byte, error) {
	ac, err := ahocorasick.New(delimiters, 0)
	if err != nil {
		return nil, err
	}

	it := SplitBy(r, ac)
	defer it.Close()

	var segs [][]byte
	for b, err := range it.All() {
		if err != nil {
			return segs, err
		}
		segs = append(segs, b)
	}
	return segs, nil
}
