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

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/packetd/splitby/common"
	"github.com/packetd/splitby/confengine"
	"github.com/packetd/splitby/controller"
	"github.com/packetd/splitby/exporter"
	"github.com/packetd/splitby/internal/sigs"
	"github.com/packetd/splitby/internal/splitio"
	"github.com/packetd/splitby/source"
)

type splitCmdConfig struct {
	Delimiters  []string
	DelimFile   string
	Compression string
	RateLimit   int
	BufferSize  int
	Sinker      string
	Output      string
	Separator   string
	MaxDataSize int
	OutputSize  int
	LoggerLevel string
}

// quote 输出 YAML 单引号字符串
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// delimiters 合并 --delim 以及 --delim-file 中的分隔符
func (c *splitCmdConfig) delimiters() ([]string, error) {
	delims := append([]string(nil), c.Delimiters...)
	if c.DelimFile == "" {
		return delims, nil
	}

	b, err := os.ReadFile(c.DelimFile)
	if err != nil {
		return nil, err
	}
	return append(delims, splitio.Lines(b)...), nil
}

// Yaml 渲染除分隔符以外的配置
//
// 分隔符与 separator 可以包含 YAML 无法表达的任意字节 由 Load 直接合并
func (c *splitCmdConfig) Yaml() ([]byte, error) {
	text := `
server:
  enabled: false
logger:
  stderr: true
  level: {{ .LoggerLevel }}

splitter:
  bufferSize: {{ .BufferSize }}

source:
  compression: {{ quote .Compression }}
  rateLimit: {{ .RateLimit }}

exporter:
  sinker: {{ .Sinker }}
  console: {{ .Console }}
  filename: {{ quote .Output }}
  maxSize: {{ .OutputSize }}
  options:
    maxDataSize: {{ .MaxDataSize }}
`
	tpl, err := template.New("Config").Funcs(template.FuncMap{"quote": quote}).Parse(text)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = tpl.Execute(&buf, map[string]any{
		"LoggerLevel": c.LoggerLevel,
		"BufferSize":  c.BufferSize,
		"Compression": c.Compression,
		"RateLimit":   c.RateLimit,
		"Sinker":      c.Sinker,
		"Console":     c.Output == "",
		"Output":      c.Output,
		"OutputSize":  c.OutputSize,
		"MaxDataSize": c.MaxDataSize,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load 加载 Yaml 渲染的配置并合并分隔符以及 separator
func (c *splitCmdConfig) Load() (*confengine.Config, error) {
	delims, err := c.delimiters()
	if err != nil {
		return nil, err
	}

	content, err := c.Yaml()
	if err != nil {
		return nil, err
	}
	conf, err := confengine.LoadContent(content)
	if err != nil {
		return nil, err
	}

	values := map[string]any{
		"exporter": map[string]any{
			"options": map[string]any{
				"separator": c.Separator,
			},
		},
	}
	if len(delims) > 0 {
		values["splitter"] = map[string]any{
			"delimiters": delims,
		}
	}
	if err := conf.Merge(values); err != nil {
		return nil, err
	}
	return conf, nil
}

var splitConfig splitCmdConfig

var splitCmd = &cobra.Command{
	Use:   "split [files...]",
	Short: "Split files or stdin by delimiters",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := splitConfig.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		ctr, err := controller.New(cfg, common.GetBuildInfo())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create controller: %v\n", err)
			os.Exit(1)
		}

		paths := args
		if len(paths) == 0 {
			paths = []string{controller.Stdin}
		}

		ctx, cancel := sigs.WithTerminate(context.Background())
		err = ctr.SplitFiles(ctx, paths)
		cancel()
		ctr.Stop()

		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to split: %v\n", err)
			os.Exit(1)
		}
	},
	Example: "# splitby split -d '\\r\\n' -d '==' access.log\n" +
		"# cat dump.bin.zst | splitby split -d '\\x00\\x00' --compression zstd --sinker raw --separator '\\n---\\n'",
}

func init() {
	splitCmd.Flags().StringArrayVarP(&splitConfig.Delimiters, "delim", "d", nil, "Delimiter in Go escape syntax, multiple delimiters supported")
	splitCmd.Flags().StringVar(&splitConfig.DelimFile, "delim-file", "", "File with one delimiter per line, '#' starts a comment")
	splitCmd.Flags().StringVar(&splitConfig.Compression, "compression", "", "Input compression: "+strings.Join(source.Compressions(), ", "))
	splitCmd.Flags().IntVar(&splitConfig.RateLimit, "rate-limit", 0, "Maximum read rate in bytes per second, 0 for unlimited")
	splitCmd.Flags().IntVar(&splitConfig.BufferSize, "buffer-size", common.ReadWriteBlockSize, "Bytes pulled from the input per read")
	splitCmd.Flags().StringVar(&splitConfig.Sinker, "sinker", "jsonl", "Output format: "+strings.Join(exporter.Names(), ", "))
	splitCmd.Flags().StringVarP(&splitConfig.Output, "output", "o", "", "Output file path, stdout if empty")
	splitCmd.Flags().IntVar(&splitConfig.OutputSize, "output.size", 100, "Maximum size of output file in MB before rotating")
	splitCmd.Flags().StringVar(&splitConfig.Separator, "separator", `\n`, "Separator appended after each segment by the raw sinker")
	splitCmd.Flags().IntVar(&splitConfig.MaxDataSize, "max-data-size", 0, "Maximum data bytes per jsonl line, 0 for unlimited")
	splitCmd.Flags().StringVar(&splitConfig.LoggerLevel, "log-level", "warn", "Logger level: debug, info, warn, error")
	rootCmd.AddCommand(splitCmd)
}
