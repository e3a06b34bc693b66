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

const (
	// App 应用程序名称
	App = "splitby"

	// Version 应用程序版本
	Version = "v0.0.1"

	// ReadWriteBlockSize 默认的单次读取块大小
	//
	// 匹配引擎每次从数据源拉取的字节数 同时也是 read-ahead 窗口超出待切割数据的上限
	// 过大会放大窗口内存占用 过小则会增加 Read 调用次数
	ReadWriteBlockSize = 4096
)
