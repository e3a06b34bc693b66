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

package common

import (
	"github.com/spf13/cast"
)

// Options 为非结构化的配置项 如 source.options
type Options map[string]any

func (o Options) GetInt(k string) (int, error) {
	return cast.ToIntE(o[k])
}

// GetIntDefault 获取 int 类型配置 不存在或者类型不匹配时返回 def
func (o Options) GetIntDefault(k string, def int) int {
	if _, ok := o[k]; !ok {
		return def
	}
	i, err := o.GetInt(k)
	if err != nil {
		return def
	}
	return i
}

func (o Options) GetBool(k string) (bool, error) {
	return cast.ToBoolE(o[k])
}

// GetBoolDefault 获取 bool 类型配置 不存在或者类型不匹配时返回 def
func (o Options) GetBoolDefault(k string, def bool) bool {
	if _, ok := o[k]; !ok {
		return def
	}
	b, err := o.GetBool(k)
	if err != nil {
		return def
	}
	return b
}
