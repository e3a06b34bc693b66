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

package ahocorasick

import (
	"io"

	"github.com/pkg/errors"

	"github.com/packetd/splitby/matcher"
)

// maxConsecutiveEmptyReads 与 bufio 保持一致
const maxConsecutiveEmptyReads = 100

// StreamFind 实现 matcher.Matcher 接口
func (ac *Automaton) StreamFind(r io.Reader) matcher.Matches {
	return &stream{
		ac:  ac,
		r:   r,
		buf: make([]byte, ac.bufSize),
	}
}

// stream 流式匹配状态
//
// base 为 buf[0] 在累计数据流中的偏移 只有当前块全部扫描完毕后才会继续拉取
type stream struct {
	ac    *Automaton
	r     io.Reader
	buf   []byte
	pos   int
	end   int
	base  int64
	state int32
	eof   bool
}

func (s *stream) Next() (matcher.Match, error) {
	ac := s.ac
	for {
		for s.pos < s.end {
			c := s.buf[s.pos]
			s.pos++
			s.state = ac.delta[int(s.state)*alphabet+int(c)]
			if p := ac.out[s.state]; p >= 0 {
				s.state = 0
				end := s.base + int64(s.pos)
				return matcher.Match{
					Start:   end - int64(len(ac.patterns[p])),
					End:     end,
					Pattern: int(p),
				}, nil
			}
		}

		if s.eof {
			return matcher.Match{}, io.EOF
		}
		if err := s.fill(); err != nil {
			return matcher.Match{}, err
		}
	}
}

// fill 拉取下一块数据 出错时已读取的字节仍然保留 下一次 Next 会继续扫描
func (s *stream) fill() error {
	s.base += int64(s.end)
	s.pos, s.end = 0, 0

	for i := 0; i < maxConsecutiveEmptyReads; i++ {
		n, err := s.r.Read(s.buf)
		s.end = n
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.eof = true
				return nil
			}
			return err
		}
		if n > 0 {
			return nil
		}
	}
	return io.ErrNoProgress
}
