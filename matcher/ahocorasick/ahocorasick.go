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

// Package ahocorasick 提供基于 Aho-Corasick 自动机的流式多模式匹配器
//
// 匹配采用 standard 语义: 当某个模式最先结束时立即上报 (同一结束位置取最长模式)
// 上报之后自动机回到初始状态 因此结果互不重叠
//
// 例如模式 "==" 与 "===" 在输入 "a===b" 中只会命中 [1, 3) 剩余的 "=b" 不再匹配
package ahocorasick

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/splitby/common"
)

const alphabet = 256

func newError(format string, args ...any) error {
	format = "ahocorasick: " + format
	return errors.Errorf(format, args...)
}

var errNoPatterns = newError("no patterns")

// Automaton 编译后的 DFA 并发安全 可同时服务多个数据流
//
// delta 为稠密转移表 delta[state*256+c] 即为下一状态
// out[state] 为在该状态结束的最长模式下标 -1 表示无输出
type Automaton struct {
	patterns [][]byte
	delta    []int32
	out      []int32
	bufSize  int
	maxLen   int
}

// New 编译 patterns 并返回 *Automaton 实例
//
// patterns 不允许为空 也不允许包含空模式 bufSize 为单次从数据源拉取的字节数
// bufSize <= 0 时使用 common.ReadWriteBlockSize
func New(patterns [][]byte, bufSize int) (*Automaton, error) {
	if len(patterns) == 0 {
		return nil, errNoPatterns
	}

	var errs error
	for i, p := range patterns {
		if len(p) == 0 {
			errs = multierror.Append(errs, newError("pattern #%d is empty", i))
		}
	}
	if errs != nil {
		return nil, errs
	}

	if bufSize <= 0 {
		bufSize = common.ReadWriteBlockSize
	}

	ac := &Automaton{
		patterns: make([][]byte, 0, len(patterns)),
		bufSize:  bufSize,
	}
	for _, p := range patterns {
		ac.patterns = append(ac.patterns, append([]byte(nil), p...))
		if len(p) > ac.maxLen {
			ac.maxLen = len(p)
		}
	}
	ac.build()
	return ac, nil
}

// MustNew 同 New 出错时 panic 仅用于模式已知合法的场景
func MustNew(patterns [][]byte, bufSize int) *Automaton {
	ac, err := New(patterns, bufSize)
	if err != nil {
		panic(err)
	}
	return ac
}

func (ac *Automaton) newState() int32 {
	ac.delta = append(ac.delta, make([]int32, alphabet)...)
	ac.out = append(ac.out, -1)
	return int32(len(ac.out) - 1)
}

// build 构建 trie 并通过 BFS 补全失败转移 生成稠密 DFA
func (ac *Automaton) build() {
	root := ac.newState()

	// -1 表示 trie 中不存在该转移 BFS 阶段补全
	for i := range ac.delta {
		ac.delta[i] = -1
	}

	for idx, p := range ac.patterns {
		s := root
		for _, c := range p {
			next := ac.delta[int(s)*alphabet+int(c)]
			if next < 0 {
				next = ac.newState()
				base := int(next) * alphabet
				for i := base; i < base+alphabet; i++ {
					ac.delta[i] = -1
				}
				ac.delta[int(s)*alphabet+int(c)] = next
			}
			s = next
		}
		// 重复模式保留第一个
		if ac.out[s] < 0 {
			ac.out[s] = int32(idx)
		}
	}

	fail := make([]int32, len(ac.out))
	queue := make([]int32, 0, len(ac.out))
	for c := 0; c < alphabet; c++ {
		next := ac.delta[c]
		if next < 0 {
			ac.delta[c] = root
			continue
		}
		fail[next] = root
		queue = append(queue, next)
	}

	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		// 自身不是模式结尾时 继承失败链上最长的输出
		if ac.out[s] < 0 {
			ac.out[s] = ac.out[fail[s]]
		}

		base := int(s) * alphabet
		fbase := int(fail[s]) * alphabet
		for c := 0; c < alphabet; c++ {
			next := ac.delta[base+c]
			if next < 0 {
				ac.delta[base+c] = ac.delta[fbase+c]
				continue
			}
			fail[next] = ac.delta[fbase+c]
			queue = append(queue, next)
		}
	}
}

// Patterns 返回编译时的模式列表
func (ac *Automaton) Patterns() [][]byte {
	return ac.patterns
}

// MaxPatternLen 返回最长模式的长度
func (ac *Automaton) MaxPatternLen() int {
	return ac.maxLen
}

// BufferSize 返回单次拉取的字节数
func (ac *Automaton) BufferSize() int {
	return ac.bufSize
}

func (ac *Automaton) String() string {
	return fmt.Sprintf("ahocorasick(patterns=%d, states=%d)", len(ac.patterns), len(ac.out))
}
