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

package splitter

import (
	"bytes"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/splitby/matcher"
	"github.com/packetd/splitby/matcher/ahocorasick"
)

func toPatterns(ss ...string) [][]byte {
	var ps [][]byte
	for _, s := range ss {
		ps = append(ps, []byte(s))
	}
	return ps
}

func collect(t *testing.T, it *Iterator) []string {
	var segs []string
	for {
		b, err := it.Next()
		if errors.Is(err, io.EOF) {
			return segs
		}
		require.NoError(t, err)
		segs = append(segs, string(b))
	}
}

func TestSplitBy(t *testing.T) {
	tests := []struct {
		name       string
		delimiters []string
		input      string
		want       []string
	}{
		{
			name:       "Leading",
			delimiters: []string{"=="},
			input:      "==1==2",
			want:       []string{"1", "2"},
		},
		{
			name:       "Trailing",
			delimiters: []string{"=="},
			input:      "1==2==",
			want:       []string{"1", "2"},
		},
		{
			name:       "Consecutive",
			delimiters: []string{"=="},
			input:      "1====2",
			want:       []string{"1", "2"},
		},
		{
			name:       "EmptyInput",
			delimiters: []string{"=="},
			input:      "",
			want:       nil,
		},
		{
			name:       "DelimiterOnly",
			delimiters: []string{"=="},
			input:      "==",
			want:       nil,
		},
		{
			name:       "NotPresent",
			delimiters: []string{"=="},
			input:      "12345678",
			want:       []string{"12345678"},
		},
		{
			name:       "LeadingMany",
			delimiters: []string{"=="},
			input:      "==1==2==3==4==5==6==7==8",
			want:       []string{"1", "2", "3", "4", "5", "6", "7", "8"},
		},
		{
			name:       "TrailingMany",
			delimiters: []string{"=="},
			input:      "1==2==3==4==5==6==7==8==",
			want:       []string{"1", "2", "3", "4", "5", "6", "7", "8"},
		},
		{
			name:       "ConsecutiveMany",
			delimiters: []string{"=="},
			input:      "1====2==3==4==5==6==7==8",
			want:       []string{"1", "2", "3", "4", "5", "6", "7", "8"},
		},
		{
			name:       "MultipleDelimiters",
			delimiters: []string{"--------", "********", "########"},
			input:      "first\n--------\nsecond\n********########\nthird\n################\nlast",
			want:       []string{"first\n", "\nsecond\n", "\nthird\n", "\nlast"},
		},
		{
			name:       "OddDelimiterRun",
			delimiters: []string{"=="},
			input:      "a===b",
			want:       []string{"a", "=b"},
		},
	}

	for _, tt := range tests {
		for _, size := range []int{1, 2, 3, 4096} {
			t.Run(fmt.Sprintf("%s/buf%d", tt.name, size), func(t *testing.T) {
				ac := ahocorasick.MustNew(toPatterns(tt.delimiters...), size)
				it := SplitBy(strings.NewReader(tt.input), ac)
				defer it.Close()

				assert.Equal(t, tt.want, collect(t, it))
				assert.Equal(t, int64(len(tt.input)), it.Offset())
				assert.Equal(t, it.Offset(), it.Stats().Buffer.Drained)
			})
		}
	}
}

func TestSplitByOneByteReader(t *testing.T) {
	ac := ahocorasick.MustNew(toPatterns("\r\n\r\n"), 7)
	input := strings.Repeat("header: value\r\n\r\n", 50)

	it := SplitBy(iotest.OneByteReader(strings.NewReader(input)), ac)
	segs := collect(t, it)
	require.Len(t, segs, 50)
	for _, seg := range segs {
		assert.Equal(t, "header: value", seg)
	}
}

func TestNextSegment(t *testing.T) {
	it, err := New(strings.NewReader("==ab==cd===ef"), Config{Delimiters: []string{"=="}})
	require.NoError(t, err)

	var segs []Segment
	for {
		seg, err := it.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		segs = append(segs, seg)
	}

	assert.Equal(t, []Segment{
		{Index: 0, Offset: 2, Data: []byte("ab")},
		{Index: 1, Offset: 6, Data: []byte("cd")},
		{Index: 2, Offset: 10, Data: []byte("=ef")},
	}, segs)

	stats := it.Stats()
	assert.Equal(t, 3, stats.Segments)
	assert.Equal(t, 3, stats.Delimiters)

	// 结束之后持续返回 io.EOF
	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(strings.NewReader("x"), Config{})
	assert.Error(t, err)

	_, err = New(strings.NewReader("x"), Config{Delimiters: []string{`\x`}})
	assert.Error(t, err)
}

// recordingMatcher 记录匹配引擎产出的所有匹配
type recordingMatcher struct {
	m       matcher.Matcher
	matches []matcher.Match
}

func (r *recordingMatcher) StreamFind(rd io.Reader) matcher.Matches {
	return &recordingMatches{ms: r.m.StreamFind(rd), rec: r}
}

type recordingMatches struct {
	ms  matcher.Matches
	rec *recordingMatcher
}

func (r *recordingMatches) Next() (matcher.Match, error) {
	m, err := r.ms.Next()
	if err == nil {
		r.rec.matches = append(r.rec.matches, m)
	}
	return m, err
}

func TestSplitByPartition(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	alphabet := []byte("ab=-\n")
	delimiterSets := [][]string{
		{"="},
		{"=="},
		{"==", "--"},
		{"=-", "-=", "\n\n"},
		{"ab", "b", "aab"},
	}

	for round := 0; round < 200; round++ {
		input := make([]byte, rnd.IntN(256))
		for i := range input {
			input[i] = alphabet[rnd.IntN(len(alphabet))]
		}
		delimiters := delimiterSets[round%len(delimiterSets)]
		patterns := toPatterns(delimiters...)

		rec := &recordingMatcher{m: ahocorasick.MustNew(patterns, 1+rnd.IntN(16))}
		it := SplitBy(bytes.NewReader(input), rec)
		segs := collect(t, it)

		var want []string
		var rebuilt []byte
		var total int
		prev := int64(0)
		for _, m := range rec.matches {
			require.GreaterOrEqual(t, m.Start, prev)
			assert.Equal(t, patterns[m.Pattern], input[m.Start:m.End])

			piece := input[prev:m.Start]
			if len(piece) > 0 {
				want = append(want, string(piece))
			}
			rebuilt = append(rebuilt, piece...)
			rebuilt = append(rebuilt, input[m.Start:m.End]...)
			total += m.Len()
			prev = m.End
		}
		if tail := input[prev:]; len(tail) > 0 {
			want = append(want, string(tail))
			rebuilt = append(rebuilt, tail...)
		}

		assert.Equal(t, want, segs)
		assert.Equal(t, input, rebuilt)
		for _, seg := range segs {
			assert.NotEmpty(t, seg)
			total += len(seg)
			for _, p := range patterns {
				assert.NotContains(t, seg, string(p))
			}
		}
		assert.Equal(t, len(input), total)
	}
}

func TestSplitByBoundedWindow(t *testing.T) {
	const bufSize = 64
	rnd := rand.New(rand.NewPCG(3, 4))

	var input []byte
	var maxGap int
	for i := 0; i < 2000; i++ {
		seg := bytes.Repeat([]byte("x"), 1+rnd.IntN(100))
		input = append(input, seg...)
		input = append(input, "||"...)
		maxGap = max(maxGap, len(seg)+2)
	}

	it := SplitBy(bytes.NewReader(input), ahocorasick.MustNew(toPatterns("||"), bufSize))
	segs := collect(t, it)
	assert.Len(t, segs, 2000)

	stats := it.Stats().Buffer
	assert.Equal(t, int64(len(input)), stats.Pulled)
	assert.LessOrEqual(t, stats.PeakWindow, maxGap+bufSize)
	assert.Less(t, stats.PeakWindow, len(input)/100)
}

type failOnceReader struct {
	r      io.Reader
	failed bool
	after  int
	err    error
}

func (f *failOnceReader) Read(p []byte) (int, error) {
	if !f.failed && f.after <= 0 {
		f.failed = true
		return 0, f.err
	}
	n, err := f.r.Read(p)
	f.after -= n
	return n, err
}

func TestSplitByReadError(t *testing.T) {
	errBoom := errors.New("boom")
	ac := ahocorasick.MustNew(toPatterns("=="), 2)
	it := SplitBy(&failOnceReader{r: strings.NewReader("a==b==c"), after: 4, err: errBoom}, ac)

	b, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", string(b))
	assert.Equal(t, int64(3), it.Offset())

	_, err = it.Next()
	assert.Equal(t, errBoom, err)
	assert.Equal(t, int64(3), it.Offset())
	assert.Equal(t, int64(3), it.Stats().Buffer.Drained)

	// 错误不会破坏 Buffer 不变量 继续调用可以得到剩余分段
	assert.Equal(t, []string{"b", "c"}, collect(t, it))
}

func TestAll(t *testing.T) {
	ac := ahocorasick.MustNew(toPatterns(","), 0)

	var got []string
	for b, err := range SplitBy(strings.NewReader("a,,b,c,"), ac).All() {
		require.NoError(t, err)
		got = append(got, string(b))
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	got = got[:0]
	for b, err := range SplitBy(strings.NewReader("a,b,c"), ac).All() {
		require.NoError(t, err)
		got = append(got, string(b))
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestAllError(t *testing.T) {
	errBoom := errors.New("boom")
	ac := ahocorasick.MustNew(toPatterns(","), 0)
	it := SplitBy(iotest.ErrReader(errBoom), ac)

	var errs int
	for _, err := range it.All() {
		assert.Equal(t, errBoom, err)
		errs++
		break
	}
	assert.Equal(t, 1, errs)
}

func TestSplit(t *testing.T) {
	segs, err := Split(strings.NewReader("k1=v1&k2=v2;k3=v3"), []byte("&"), []byte(";"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("k1=v1"), []byte("k2=v2"), []byte("k3=v3")}, segs)

	_, err = Split(strings.NewReader("x"))
	assert.Error(t, err)
}

// brokenMatcher 产出违反顺序约定的匹配
type brokenMatcher struct{}

func (brokenMatcher) StreamFind(r io.Reader) matcher.Matches {
	return &brokenMatches{r: r}
}

type brokenMatches struct {
	r io.Reader
	n int
}

func (b *brokenMatches) Next() (matcher.Match, error) {
	io.ReadFull(b.r, make([]byte, 4))
	b.n++
	if b.n == 1 {
		return matcher.Match{Start: 2, End: 3}, nil
	}
	return matcher.Match{Start: 1, End: 2}, nil
}

func TestSplitByBrokenMatcher(t *testing.T) {
	it := SplitBy(strings.NewReader("abcdefgh"), brokenMatcher{})

	b, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "ab", string(b))
	assert.Panics(t, func() { it.Next() })
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestClose(t *testing.T) {
	cr := &closeRecorder{Reader: strings.NewReader("a==b")}
	it := SplitBy(cr, ahocorasick.MustNew(toPatterns("=="), 0))

	b, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", string(b))

	require.NoError(t, it.Close())
	assert.True(t, cr.closed)

	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func BenchmarkSplitBy(b *testing.B) {
	input := bytes.Repeat([]byte(strings.Repeat("x", 1024)+"\r\n"), 100)
	ac := ahocorasick.MustNew(toPatterns("\r\n"), 0)

	b.ReportAllocs()
	b.ResetTimer()
	b.SetBytes(int64(len(input)))

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			it := SplitBy(bytes.NewReader(input), ac)
			for {
				if _, err := it.Next(); err != nil {
					break
				}
			}
			it.Close()
		}
	})
}
