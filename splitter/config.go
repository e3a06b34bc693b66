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
	"strconv"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/splitby/matcher/ahocorasick"
)

func newError(format string, args ...any) error {
	format = "splitter: " + format
	return errors.Errorf(format, args...)
}

// Config 切割配置
type Config struct {
	// Delimiters 分隔符列表 支持 Go 转义语法 如 `\r\n` `\x00`
	Delimiters []string `config:"delimiters"`

	// BufferSize 匹配引擎单次拉取的字节数
	BufferSize int `config:"bufferSize"`
}

// Patterns 解析转义后的分隔符 所有非法的分隔符会一并返回
func (c Config) Patterns() ([][]byte, error) {
	if len(c.Delimiters) == 0 {
		return nil, newError("no delimiters")
	}

	var errs error
	patterns := make([][]byte, 0, len(c.Delimiters))
	for _, d := range c.Delimiters {
		p, err := Unescape(d)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		patterns = append(patterns, p)
	}
	if errs != nil {
		return nil, errs
	}
	return patterns, nil
}

// Matcher 编译并返回匹配器
func (c Config) Matcher() (*ahocorasick.Automaton, error) {
	patterns, err := c.Patterns()
	if err != nil {
		return nil, err
	}
	return ahocorasick.New(patterns, c.BufferSize)
}

// Unescape 解析包含 Go 转义序列的分隔符 如 `\r\n` `\x00` `\u4e2d`
//
// 非转义字节原样保留 (包括非 UTF-8 字节) 引号无需转义
func Unescape(s string) ([]byte, error) {
	if s == "" {
		return nil, newError("empty delimiter")
	}

	out := make([]byte, 0, len(s))
	for rest := s; len(rest) > 0; {
		if rest[0] != '\\' {
			out = append(out, rest[0])
			rest = rest[1:]
			continue
		}

		v, multibyte, tail, err := strconv.UnquoteChar(rest, 0)
		if err != nil {
			return nil, newError("invalid delimiter %q: %v", s, err)
		}
		if multibyte {
			out = utf8.AppendRune(out, v)
		} else {
			out = append(out, byte(v))
		}
		rest = tail
	}
	return out, nil
}
