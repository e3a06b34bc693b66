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

package source

import (
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/packetd/splitby/common"
)

const (
	CompressionNone   = "none"
	CompressionGzip   = "gzip"
	CompressionZstd   = "zstd"
	CompressionSnappy = "snappy"
	CompressionLz4    = "lz4"
)

// Compressions 返回支持的压缩格式
func Compressions() []string {
	return []string{CompressionNone, CompressionGzip, CompressionZstd, CompressionSnappy, CompressionLz4}
}

// decompressor 解压缩 Reader Close 仅释放解压缩器自身资源
type decompressor interface {
	io.Reader
	io.Closer
}

type plain struct {
	io.Reader
}

func (plain) Close() error { return nil }

type zstdReader struct {
	*zstd.Decoder
}

func (z zstdReader) Close() error {
	z.Decoder.Close()
	return nil
}

// newDecompressor 根据压缩格式创建解压缩器
//
// gzip 会在创建时读取文件头 因此头部错误会在这里直接返回
func newDecompressor(r io.Reader, compression string, opts common.Options) (decompressor, error) {
	switch strings.ToLower(strings.TrimSpace(compression)) {
	case "", CompressionNone:
		return plain{Reader: r}, nil

	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, newError("open gzip stream: %v", err)
		}
		return zr, nil

	case CompressionZstd:
		zr, err := zstd.NewReader(r,
			zstd.WithDecoderConcurrency(opts.GetIntDefault("concurrency", 1)),
			zstd.WithDecoderLowmem(opts.GetBoolDefault("lowmem", true)),
		)
		if err != nil {
			return nil, newError("open zstd stream: %v", err)
		}
		return zstdReader{Decoder: zr}, nil

	case CompressionSnappy:
		return plain{Reader: snappy.NewReader(r)}, nil

	case CompressionLz4:
		return plain{Reader: lz4.NewReader(r)}, nil
	}
	return nil, newError("unsupported compression %q", compression)
}
