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

// Package source 负责将原始输入转换为切割所需的字节流
//
// 依次叠加 解压缩 -> 限速 -> context 取消 三层 Reader
// 任意一层返回的错误都会作为数据源的 IO 错误透传给 splitter
package source

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/packetd/splitby/common"
)

func newError(format string, args ...any) error {
	format = "source: " + format
	return errors.Errorf(format, args...)
}

// Config 数据源配置
type Config struct {
	// Compression 输入的压缩格式 none/gzip/zstd/snappy/lz4
	Compression string `config:"compression"`

	// RateLimit 读取限速 单位 bytes/s 0 表示不限速
	RateLimit int `config:"rateLimit"`

	// Options 压缩格式相关的额外配置 如 zstd 的 concurrency
	Options common.Options `config:"options"`
}

// Open 根据 cfg 包装 r 并返回 io.ReadCloser
//
// Close 会释放解压缩器持有的资源 并在 r 实现了 io.Closer 时关闭 r
func Open(ctx context.Context, r io.Reader, cfg Config) (io.ReadCloser, error) {
	dec, err := newDecompressor(r, cfg.Compression, cfg.Options)
	if err != nil {
		return nil, err
	}

	var rd io.Reader = dec
	if cfg.RateLimit > 0 {
		rd = newThrottledReader(ctx, rd, cfg.RateLimit)
	}
	rd = &contextReader{ctx: ctx, r: rd}

	return &readCloser{
		Reader: rd,
		closers: []io.Closer{
			dec,
			closerOf(r),
		},
	}, nil
}

// contextReader 在 ctx 取消后拒绝继续读取
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func closerOf(r io.Reader) io.Closer {
	if c, ok := r.(io.Closer); ok {
		return c
	}
	return nopCloser{}
}
