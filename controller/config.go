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

package controller

import (
	"github.com/packetd/splitby/confengine"
	"github.com/packetd/splitby/logger"
	"github.com/packetd/splitby/source"
	"github.com/packetd/splitby/splitter"
)

type Config struct {
	// Source 数据源配置 对文件以及 /split 请求体均生效
	Source source.Config `config:"source"`

	// Splitter 默认分隔符 /split 请求未携带 delim 参数时使用
	Splitter splitter.Config `config:"splitter"`
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}

	opts.Validate()
	logger.SetOptions(opts)
	return nil
}

func loadConfig(conf *confengine.Config) (Config, error) {
	var cfg Config
	if err := conf.UnpackChild("source", &cfg.Source); err != nil {
		return cfg, err
	}
	if err := conf.UnpackChild("splitter", &cfg.Splitter); err != nil {
		return cfg, err
	}
	return cfg, nil
}
