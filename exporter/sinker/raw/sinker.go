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

// Package raw 原样输出分段 分段之间使用 separator 分隔
package raw

import (
	"io"

	"github.com/packetd/splitby/exporter"
	"github.com/packetd/splitby/splitter"
)

const Name = "raw"

func init() {
	exporter.Register(Name, New)
}

type Config struct {
	// Separator 分段之后追加的字节 支持 Go 转义语法 默认为 `\n`
	Separator string `mapstructure:"separator"`
}

type Sinker struct {
	w   io.Writer
	sep []byte
}

func New(w io.Writer, opts map[string]any) (exporter.Sinker, error) {
	cfg := Config{Separator: `\n`}
	if err := exporter.DecodeOptions(opts, &cfg); err != nil {
		return nil, err
	}

	var sep []byte
	if cfg.Separator != "" {
		b, err := splitter.Unescape(cfg.Separator)
		if err != nil {
			return nil, err
		}
		sep = b
	}
	return &Sinker{w: w, sep: sep}, nil
}

func (s *Sinker) Name() string {
	return Name
}

func (s *Sinker) Sink(rec exporter.Record) error {
	if _, err := s.w.Write(rec.Data); err != nil {
		return err
	}
	if len(s.sep) == 0 {
		return nil
	}
	_, err := s.w.Write(s.sep)
	return err
}
