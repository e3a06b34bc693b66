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

// Package bufbytes 提供有上限的字节累积 超出上限的部分会被丢弃
package bufbytes

type Bytes struct {
	size      int
	buf       []byte
	truncated int
}

func New(size int) *Bytes {
	return &Bytes{
		size: size,
	}
}

func (b *Bytes) Write(p []byte) {
	n := (b.size - len(b.buf)) - len(p)
	if n >= 0 {
		b.buf = append(b.buf, p...)
		return
	}

	l := b.size - len(b.buf)
	if l > 0 {
		b.buf = append(b.buf, p[:l]...)
		p = p[l:]
	}
	b.truncated += len(p)
}

func (b *Bytes) Len() int {
	return len(b.buf)
}

// Truncated 返回被丢弃的字节数
func (b *Bytes) Truncated() int {
	return b.truncated
}

func (b *Bytes) Text() string {
	return string(b.buf)
}

// Preview 返回 p 最多 size 字节的文本 以及被截断的字节数
func Preview(p []byte, size int) (string, int) {
	if size <= 0 || len(p) <= size {
		return string(p), 0
	}
	b := New(size)
	b.Write(p)
	return b.Text(), b.Truncated()
}
