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

package exporter

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/packetd/splitby/confengine"
)

func newError(format string, args ...any) error {
	format = "exporter: " + format
	return errors.Errorf(format, args...)
}

// Exporter 将分段写入 stdout 或者滚动文件
//
// Export 允许并发调用 多个数据源的分段会按照调用顺序交错写入
type Exporter struct {
	mut    sync.Mutex
	wr     io.Writer
	closer io.Closer
	sinker Sinker
	total  int
}

func New(conf *confengine.Config) (*Exporter, error) {
	var cfg Config
	if err := conf.UnpackChild("exporter", &cfg); err != nil {
		return nil, err
	}
	return NewFromConfig(cfg)
}

func NewFromConfig(cfg Config) (*Exporter, error) {
	cfg.Validate()

	var wr io.Writer
	var closer io.Closer
	switch {
	case cfg.Console:
		wr = os.Stdout
	default:
		lj := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			LocalTime:  true,
		}
		wr, closer = lj, lj
	}

	sinker, err := NewSinker(wr, cfg.Sinker, cfg.Options)
	if err != nil {
		return nil, err
	}
	return &Exporter{
		wr:     wr,
		closer: closer,
		sinker: sinker,
	}, nil
}

// NewSinker 在 w 上创建名为 name 的 Sinker
func NewSinker(w io.Writer, name string, opts map[string]any) (Sinker, error) {
	f := Get(name)
	if f == nil {
		return nil, newError("unknown sinker %q", name)
	}
	return f(w, opts)
}

func (e *Exporter) Export(rec Record) error {
	e.mut.Lock()
	defer e.mut.Unlock()

	if err := e.sinker.Sink(rec); err != nil {
		return err
	}
	e.total++
	return nil
}

// Total 返回成功输出的分段数量
func (e *Exporter) Total() int {
	e.mut.Lock()
	defer e.mut.Unlock()

	return e.total
}

func (e *Exporter) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}
