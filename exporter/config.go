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

// Config 分段输出配置
type Config struct {
	// Sinker 输出格式 参见 Names()
	Sinker string `config:"sinker"`

	// Console 为 true 时输出至 stdout 否则写入 Filename 并按照大小滚动
	Console    bool   `config:"console"`
	Filename   string `config:"filename"`
	MaxSize    int    `config:"maxSize"` // unit: MB
	MaxBackups int    `config:"maxBackups"`
	MaxAge     int    `config:"maxAge"` // unit: days

	// Options 传递给 Sinker 的配置
	Options map[string]any `config:"options"`
}

func (c *Config) Validate() {
	if c.Sinker == "" {
		c.Sinker = "jsonl"
	}
	if c.Filename == "" {
		c.Filename = "segments.log"
	}
	if c.MaxSize <= 0 {
		c.MaxSize = 100
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 10
	}
}
