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

// Package matcher 定义多模式匹配引擎的流式接口
//
// 匹配引擎通过 io.Reader 按需拉取数据 只读取确认或者排除候选匹配所必需的数据
// 产出的 Match 按 Start 严格递增且互不重叠
package matcher

import (
	"io"
)

// Match 分隔符在累计数据流中的区间 [Start, End)
type Match struct {
	Start   int64
	End     int64
	Pattern int // 命中的模式下标
}

// Len 返回分隔符长度
func (m Match) Len() int {
	return int(m.End - m.Start)
}

// Matches 惰性的匹配结果序列
type Matches interface {
	// Next 返回下一个匹配
	//
	// 序列耗尽时返回 io.EOF 且之后的调用持续返回 io.EOF
	// 其余错误均为数据源的 IO 错误 内部状态保持不变 调用方可以决定是否继续调用
	Next() (Match, error)
}

// Matcher 已经编译好的多模式匹配器
type Matcher interface {
	// StreamFind 在 r 上进行流式匹配 r 只会被顺序读取
	StreamFind(r io.Reader) Matches
}
