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
	"context"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/packetd/splitby/common"
	"github.com/packetd/splitby/confengine"
	"github.com/packetd/splitby/exporter"
	"github.com/packetd/splitby/internal/pubsub"
	"github.com/packetd/splitby/internal/rescue"
	"github.com/packetd/splitby/logger"
	"github.com/packetd/splitby/matcher"
	"github.com/packetd/splitby/server"
	"github.com/packetd/splitby/source"
	"github.com/packetd/splitby/splitter"
)

// Stdin 作为文件路径时代表标准输入
const Stdin = "-"

func newError(format string, args ...any) error {
	format = "controller: " + format
	return errors.Errorf(format, args...)
}

type Controller struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       Config
	buildInfo common.BuildInfo

	// matcher 由默认分隔符编译而来 未配置时为空
	matcher matcher.Matcher
	exp     *exporter.Exporter
	svr     *server.Server
	stdin   io.Reader

	// segBus 广播所有产出的分段 供 /watch 订阅
	segBus *pubsub.PubSub[exporter.Record]
}

func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Controller, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(conf)
	if err != nil {
		return nil, err
	}

	var m matcher.Matcher
	if len(cfg.Splitter.Delimiters) > 0 {
		ac, err := cfg.Splitter.Matcher()
		if err != nil {
			return nil, err
		}
		logger.Debugf("compiled %d delimiters: %s, maxPatternLen=%d, bufferSize=%d", len(ac.Patterns()), ac, ac.MaxPatternLen(), ac.BufferSize())
		m = ac
	}

	exp, err := exporter.New(conf)
	if err != nil {
		return nil, err
	}

	svr, err := server.New(conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		buildInfo: buildInfo,
		matcher:   m,
		exp:       exp,
		svr:       svr,
		stdin:     os.Stdin,
		segBus:    pubsub.New[exporter.Record](),
	}, nil
}

func (c *Controller) Start() error {
	if c.svr == nil {
		return nil
	}

	c.setupServer()
	go func() {
		err := c.svr.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("failed to start server: %v", err)
		}
	}()
	return nil
}

// SplitFiles 并发切割 paths 并将分段写入 Exporter
//
// 单个文件失败不会影响其他文件 所有错误会被聚合后返回
func (c *Controller) SplitFiles(ctx context.Context, paths []string) error {
	if c.matcher == nil {
		return newError("no delimiters configured")
	}

	var mut sync.Mutex
	var errs error

	var g errgroup.Group
	g.SetLimit(common.Concurrency())
	for _, path := range paths {
		g.Go(func() error {
			err := c.splitFile(ctx, path)
			if err != nil {
				splitFiles.WithLabelValues("failure").Inc()
				mut.Lock()
				errs = multierror.Append(errs, errors.Wrapf(err, "split %s", path))
				mut.Unlock()
				return nil
			}
			splitFiles.WithLabelValues("success").Inc()
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func (c *Controller) splitFile(ctx context.Context, path string) (err error) {
	defer rescue.HandleCrashErr(&err)

	// 标准输入归进程所有 不随单个任务关闭
	var r io.ReadCloser = io.NopCloser(c.stdin)
	if path != Stdin {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		r = f
	}

	rc, err := source.Open(ctx, r, c.cfg.Source)
	if err != nil {
		r.Close()
		return err
	}

	start := time.Now()
	it := splitter.SplitBy(rc, c.matcher)
	defer it.Close()

	for {
		seg, err := it.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		rec := exporter.Record{
			Source: path,
			Index:  seg.Index,
			Offset: seg.Offset,
			Data:   seg.Data,
		}
		if err := c.exp.Export(rec); err != nil {
			return err
		}
		c.segBus.Publish(rec)
	}

	stats := it.Stats()
	logger.Std().With("source", path).Infof("segments=%d, delimiters=%d, bytes=%d, peakWindow=%d, took=%v",
		stats.Segments, stats.Delimiters, it.Offset(), stats.Buffer.PeakWindow, time.Since(start))
	return nil
}

func (c *Controller) Stop() {
	if c.svr != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.svr.Shutdown(ctx); err != nil {
			logger.Warnf("failed to shutdown server: %v", err)
		}
		cancel()
	}
	if err := c.exp.Close(); err != nil {
		logger.Warnf("failed to close exporter: %v", err)
	}
	c.cancel()
}
