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

// Package splitio 提供零拷贝的按行扫描 用于解析分隔符列表文件等小体积文本
package splitio

import (
	"bytes"
)

var (
	CharCRLF = []byte("\r\n")
	CharLF   = []byte("\n")
)

type Scanner struct {
	l, r int
	buf  []byte
}

// NewScanner 创建并返回 *Scanner 实例
//
// 与 *bufio.Scanner 不同 Bytes 会保留行尾的换行符 `\r\n` 或者 `\n`
// 且不会拷贝 buf 内容
func NewScanner(b []byte) *Scanner {
	return &Scanner{
		buf: b,
	}
}

// Scan 扫描下一个 LF 字符并标记索引
func (s *Scanner) Scan() bool {
	s.l = s.r
	if len(s.buf) == s.l {
		return false
	}

	idx := bytes.IndexByte(s.buf[s.l:], CharLF[0])
	if idx == -1 {
		s.r = len(s.buf)
	} else {
		s.r = s.l + idx + 1
	}
	return true
}

// Bytes 读取下一行 如有修改需求 请拷贝一份
func (s *Scanner) Bytes() []byte {
	return s.buf[s.l:s.r]
}

// Line 读取下一行 不包含行尾的换行符
func (s *Scanner) Line() []byte {
	b := s.Bytes()
	if bytes.HasSuffix(b, CharCRLF) {
		return b[:len(b)-len(CharCRLF)]
	}
	if bytes.HasSuffix(b, CharLF) {
		return b[:len(b)-len(CharLF)]
	}
	return b
}

// Lines 返回所有非空行 忽略以 `#` 开头的注释行
func Lines(b []byte) []string {
	var lines []string
	s := NewScanner(b)
	for s.Scan() {
		line := s.Line()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		lines = append(lines, string(line))
	}
	return lines
}
