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

// Package jsonl 以 JSON Lines 格式输出分段 每个分段一行
package jsonl

import (
	"io"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/packetd/splitby/exporter"
	"github.com/packetd/splitby/internal/bufbytes"
	"github.com/packetd/splitby/internal/json"
)

const Name = "jsonl"

func init() {
	exporter.Register(Name, New)
}

type Config struct {
	// MaxDataSize data 字段的最大字节数 0 表示不截断
	MaxDataSize int `mapstructure:"maxDataSize"`

	// OmitData 为 true 时仅输出分段元信息
	OmitData bool `mapstructure:"omitData"`

	// Binary 为 true 时 data 字段使用 base64 编码 适用于非文本数据
	Binary bool `mapstructure:"binary"`
}

type Sinker struct {
	cfg     Config
	encoder json.Encoder
}

func New(w io.Writer, opts map[string]any) (exporter.Sinker, error) {
	var cfg Config
	if err := exporter.DecodeOptions(opts, &cfg); err != nil {
		return nil, err
	}
	return &Sinker{
		cfg:     cfg,
		encoder: json.NewEncoder(w),
	}, nil
}

func (s *Sinker) Name() string {
	return Name
}

type record struct {
	Source    string `json:"source,omitempty"`
	Index     int    `json:"index"`
	Offset    int64  `json:"offset"`
	Size      int    `json:"size"`
	Hash      string `json:"hash"`
	Data      any    `json:"data,omitempty"`
	Truncated int    `json:"truncated,omitempty"`
}

func (s *Sinker) Sink(rec exporter.Record) error {
	r := record{
		Source: rec.Source,
		Index:  rec.Index,
		Offset: rec.Offset,
		Size:   len(rec.Data),
		Hash:   strconv.FormatUint(xxhash.Sum64(rec.Data), 16),
	}

	switch {
	case s.cfg.OmitData:
	case s.cfg.Binary:
		data := rec.Data
		if s.cfg.MaxDataSize > 0 && len(data) > s.cfg.MaxDataSize {
			r.Truncated = len(data) - s.cfg.MaxDataSize
			data = data[:s.cfg.MaxDataSize]
		}
		r.Data = data // []byte 会被编码为 base64
	default:
		r.Data, r.Truncated = bufbytes.Preview(rec.Data, s.cfg.MaxDataSize)
	}
	return s.encoder.Encode(r)
}
