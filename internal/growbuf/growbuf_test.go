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

package growbuf

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// scriptReader 按照预设的步骤返回数据与错误
type scriptReader struct {
	steps []step
	calls int
}

type step struct {
	data string
	err  error
}

func (r *scriptReader) Read(p []byte) (int, error) {
	r.calls++
	if len(r.steps) == 0 {
		return 0, io.EOF
	}
	s := r.steps[0]
	n := copy(p, s.data)
	if n < len(s.data) {
		r.steps[0].data = s.data[n:]
		return n, nil
	}
	r.steps = r.steps[1:]
	return n, s.err
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func readAll(t *testing.T, b *Buffer, size int) []string {
	var chunks []string
	p := make([]byte, size)
	for {
		n, err := b.Read(p)
		if n > 0 {
			chunks = append(chunks, string(p[:n]))
		}
		if errors.Is(err, io.EOF) {
			return chunks
		}
		require.NoError(t, err)
	}
}

func TestBufferRead(t *testing.T) {
	tests := []struct {
		name  string
		input string
		size  int
		want  []string
	}{
		{
			name:  "EmptyInput",
			input: "",
			size:  4,
			want:  nil,
		},
		{
			name:  "ExactChunks",
			input: "abcdefgh",
			size:  4,
			want:  []string{"abcd", "efgh"},
		},
		{
			name:  "ShortTail",
			input: "hello world",
			size:  4,
			want:  []string{"hell", "o wo", "rld"},
		},
		{
			name:  "LargeDest",
			input: "hello",
			size:  1024,
			want:  []string{"hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(strings.NewReader(tt.input))
			assert.Equal(t, tt.want, readAll(t, b, tt.size))
			assert.Equal(t, len(tt.input), b.Len())
			assert.Equal(t, len(tt.input), b.Handed())
			assert.Equal(t, int64(len(tt.input)), b.Stats().Pulled)
		})
	}
}

func TestBufferPeekDrain(t *testing.T) {
	b := New(strings.NewReader("hello world"))
	readAll(t, b, 4)

	assert.Equal(t, []byte("hello"), b.Peek(5))
	assert.Equal(t, []byte("hello world"), b.Peek(100))
	assert.Empty(t, b.Peek(-1))
	assert.Equal(t, 11, b.Len())

	assert.Equal(t, []byte("hello "), b.Drain(6))
	assert.Equal(t, 5, b.Len())
	assert.Equal(t, 5, b.Handed())
	assert.Equal(t, []byte("world"), b.Peek(100))

	assert.Equal(t, []byte("world"), b.DrainAll())
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.Handed())
	assert.Equal(t, int64(11), b.Stats().Drained)
	assert.Empty(t, b.DrainAll())
}

func TestBufferInterleaved(t *testing.T) {
	b := New(strings.NewReader("0123456789abcdef"))
	p := make([]byte, 4)

	n, err := b.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(p[:n]))
	assert.Equal(t, []byte("01"), b.Drain(2))

	n, err = b.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "4567", string(p[:n]))
	assert.Equal(t, []byte("234567"), b.Peek(10))
	assert.Equal(t, []byte("234567"), b.Drain(6))

	n, err = b.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "89ab", string(p[:n]))
	assert.Equal(t, []byte("89ab"), b.Peek(4))
}

func TestBufferBacklog(t *testing.T) {
	r := &scriptReader{steps: []step{
		{data: "abc", err: errBoom},
		{data: "defghijk"},
	}}
	b := New(r)

	p := make([]byte, 8)
	n, err := b.Read(p)
	assert.Equal(t, 0, n)
	assert.True(t, errors.Is(err, errBoom))
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 0, b.Handed())

	// backlog 足够 不触发底层读取
	n, err = b.Read(p[:2])
	require.NoError(t, err)
	assert.Equal(t, "ab", string(p[:n]))
	assert.Equal(t, 1, r.calls)

	// backlog 不足 拉取后仍然优先交付 backlog
	n, err = b.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "cdefghij", string(p[:n]))
	assert.Equal(t, 11, b.Len())
	assert.Equal(t, 10, b.Handed())

	assert.Equal(t, []string{"k"}, readAll(t, b, 8))
	assert.Equal(t, 9, b.Stats().PeakBacklog)
}

func TestBufferEOFNotReread(t *testing.T) {
	r := &scriptReader{steps: []step{{data: "abc", err: io.EOF}}}
	b := New(r)

	p := make([]byte, 8)
	n, err := b.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for i := 0; i < 3; i++ {
		n, err = b.Read(p)
		assert.Equal(t, 0, n)
		assert.Equal(t, io.EOF, err)
	}
	assert.Equal(t, 1, r.calls)
}

func TestBufferEOFWithBacklog(t *testing.T) {
	r := &scriptReader{steps: []step{
		{data: "ab", err: errBoom},
		{data: "", err: io.EOF},
	}}
	b := New(r)

	p := make([]byte, 8)
	_, err := b.Read(p)
	assert.True(t, errors.Is(err, errBoom))

	n, err := b.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(p[:n]))

	n, err = b.Read(p)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestBufferDrainOutOfRange(t *testing.T) {
	b := New(strings.NewReader("abcdef"))
	p := make([]byte, 3)
	_, err := b.Read(p)
	require.NoError(t, err)

	assert.Panics(t, func() { b.Drain(4) })
	assert.Panics(t, func() { b.Drain(-1) })
	assert.NotPanics(t, func() { b.Drain(3) })
}

type reentrantReader struct {
	b *Buffer
}

func (r *reentrantReader) Read(p []byte) (int, error) {
	r.b.Peek(1)
	return 0, io.EOF
}

func TestBufferBorrowGuard(t *testing.T) {
	rr := &reentrantReader{}
	b := New(rr)
	rr.b = b

	assert.Panics(t, func() { b.Read(make([]byte, 4)) })

	// panic 之后 borrow 标记已被释放
	assert.NotPanics(t, func() { b.Peek(1) })
}

func TestBufferCompact(t *testing.T) {
	input := bytes.Repeat([]byte("0123456789"), 1000)
	b := New(bytes.NewReader(input))

	var out []byte
	p := make([]byte, 16)
	for {
		n, err := b.Read(p)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, n, b.Handed())
		out = append(out, b.Drain(n)...)
	}
	assert.Equal(t, input, out)
	assert.LessOrEqual(t, b.Stats().PeakWindow, 16)
}

func TestBufferClose(t *testing.T) {
	cr := &closeRecorder{Reader: strings.NewReader("abc")}
	b := New(cr)
	assert.NoError(t, b.Close())
	assert.True(t, cr.closed)
	assert.NoError(t, b.Close())
}

func BenchmarkBuffer(b *testing.B) {
	input := bytes.Repeat([]byte(strings.Repeat("x", 1024)+"\n"), 100)

	b.ReportAllocs()
	b.ResetTimer()
	b.SetBytes(int64(len(input)))

	b.RunParallel(func(pb *testing.PB) {
		p := make([]byte, 4096)
		for pb.Next() {
			buf := New(bytes.NewReader(input))
			for {
				n, err := buf.Read(p)
				if err != nil {
					break
				}
				buf.Drain(n)
			}
			buf.Close()
		}
	})
}
