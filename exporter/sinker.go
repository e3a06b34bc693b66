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
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Record 待输出的分段
type Record struct {
	Source string // 数据来源 如文件路径或者请求 ID
	Index  int
	Offset int64
	Data   []byte
}

// Sinker 负责将分段 `写入` 到指定的 io.Writer 中
type Sinker interface {
	// Name Sinker 名称
	Name() string

	// Sink 写入一个分段
	Sink(rec Record) error
}

type CreateFunc func(w io.Writer, opts map[string]any) (Sinker, error)

var sinkFactory = map[string]CreateFunc{}

func Get(name string) CreateFunc {
	return sinkFactory[name]
}

func Register(name string, createFunc CreateFunc) {
	sinkFactory[name] = createFunc
}

// Names 返回所有已注册的 Sinker 名称
func Names() []string {
	names := make([]string, 0, len(sinkFactory))
	for name := range sinkFactory {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeOptions 将非结构化的 opts 解析至 to
//
// 允许弱类型转换 HTTP query 中的字符串也可以解析成 int/bool
func DecodeOptions(opts map[string]any, to any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           to,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(opts)
}
