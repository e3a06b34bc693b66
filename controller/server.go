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
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packetd/splitby/common"
	"github.com/packetd/splitby/exporter"
	"github.com/packetd/splitby/exporter/sinker/jsonl"
	"github.com/packetd/splitby/internal/json"
	"github.com/packetd/splitby/internal/rescue"
	"github.com/packetd/splitby/logger"
	"github.com/packetd/splitby/matcher"
	"github.com/packetd/splitby/source"
	"github.com/packetd/splitby/splitter"
)

const headerRequestID = "X-Request-Id"

func (c *Controller) setupServer() {
	if c.svr == nil {
		return
	}

	c.svr.Use(requestID)

	// Admin Routes
	c.svr.RegisterPostRoute("/-/logger", c.routeLogger)

	// Split Routes
	c.svr.RegisterPostRoute("/split", c.routeSplit)

	// Watch Routes
	c.svr.RegisterGetRoute("/watch", c.routeWatch)

	// Metrics Routes
	c.svr.RegisterGetRoute("/metrics", c.routeMetrics)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(headerRequestID, id)
		}
		w.Header().Set(headerRequestID, id)
		handledRequests.WithLabelValues(r.URL.Path).Inc()
		next.ServeHTTP(w, r)
	})
}

func (c *Controller) recordMetrics() {
	uptime.Set(float64(time.Now().Unix() - common.Started()))
	buildInfo.WithLabelValues(c.buildInfo.Version, c.buildInfo.GitHash, c.buildInfo.Time).Set(1)
}

func (c *Controller) routeMetrics(w http.ResponseWriter, r *http.Request) {
	c.recordMetrics()
	promhttp.Handler().ServeHTTP(w, r)
}

func (c *Controller) routeLogger(w http.ResponseWriter, r *http.Request) {
	level := r.FormValue("level")
	logger.SetLoggerLevel(level)
	w.Write([]byte(`{"status": "success"}`))
}

// 以下 query 参数由 /split 自身消费 其余参数透传给 Sinker
var splitParams = map[string]struct{}{
	"delim":       {},
	"compression": {},
	"sinker":      {},
}

type splitRequest struct {
	matcher matcher.Matcher
	source  source.Config
	sinker  string
	options map[string]any
}

func (c *Controller) decodeSplitRequest(r *http.Request) (*splitRequest, error) {
	q := r.URL.Query()
	req := &splitRequest{
		matcher: c.matcher,
		source:  c.cfg.Source,
		sinker:  q.Get("sinker"),
		options: make(map[string]any),
	}

	if delims := q["delim"]; len(delims) > 0 {
		cfg := splitter.Config{
			Delimiters: delims,
			BufferSize: c.cfg.Splitter.BufferSize,
		}
		ac, err := cfg.Matcher()
		if err != nil {
			return nil, err
		}
		req.matcher = ac
	}
	if req.matcher == nil {
		return nil, newError("no delimiters specified")
	}

	if v := q.Get("compression"); v != "" {
		req.source.Compression = v
	}
	if req.sinker == "" {
		req.sinker = jsonl.Name
	}
	for k := range q {
		if _, ok := splitParams[k]; ok {
			continue
		}
		req.options[k] = q.Get(k)
	}
	return req, nil
}

// routeSplit 切割请求体并以流的方式返回分段
//
// 响应头发出之后的错误无法再通过状态码表达 会以 {"error": "..."} 行作为最后一行输出
func (c *Controller) routeSplit(w http.ResponseWriter, r *http.Request) {
	defer rescue.HandleCrash()

	id := r.Header.Get(headerRequestID)
	log := logger.Std().With("requestId", id)

	req, err := c.decodeSplitRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sinker, err := exporter.NewSinker(w, req.sinker, req.options)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rc, err := source.Open(r.Context(), r.Body, req.source)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	it := splitter.SplitBy(rc, req.matcher)
	defer it.Close()

	if req.sinker == jsonl.Name {
		w.Header().Set("Content-Type", "application/x-ndjson")
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	flusher, _ := w.(http.Flusher)

	for {
		seg, err := it.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warnf("failed to split body: %v", err)
			writeError(w, err)
			return
		}

		rec := exporter.Record{
			Source: id,
			Index:  seg.Index,
			Offset: seg.Offset,
			Data:   seg.Data,
		}
		c.segBus.Publish(rec)
		if err := sinker.Sink(rec); err != nil {
			log.Debugf("failed to write segment: %v", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	stats := it.Stats()
	log.Debugf("segments=%d, delimiters=%d, bytes=%d", stats.Segments, stats.Delimiters, it.Offset())
}

// routeWatch 以 jsonl 格式持续输出新产出的分段
//
// 输出 max_message 个分段或者等待超过 timeout 之后返回 其余 query 参数透传给 jsonl Sinker
func (c *Controller) routeWatch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}

	q := r.URL.Query()
	var maxMessage int
	maxMessage, _ = strconv.Atoi(q.Get("max_message"))
	if maxMessage <= 0 {
		maxMessage = 100
	}

	var timeout time.Duration
	timeout, _ = time.ParseDuration(q.Get("timeout"))
	if timeout <= 0 {
		timeout = time.Second * 5
	}

	opts := map[string]any{"maxDataSize": 256}
	for k := range q {
		if k == "max_message" || k == "timeout" {
			continue
		}
		opts[k] = q.Get(k)
	}
	sinker, err := exporter.NewSinker(w, jsonl.Name, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	queue := c.segBus.Subscribe(10)
	defer func() {
		c.segBus.Unsubscribe(queue)
		if n := queue.Dropped(); n > 0 {
			logger.Warnf("watch subscriber %s dropped %d segments", queue.ID(), n)
		}
	}()

	w.Header().Set("Content-Type", "application/x-ndjson")
	for i := 0; i < maxMessage; i++ {
		rec, ok := queue.Pop(r.Context(), timeout)
		if !ok {
			return
		}
		if err := sinker.Sink(rec); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeError(w io.Writer, err error) {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	w.Write(append(b, '\n'))
}
