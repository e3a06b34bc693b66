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

package source

import (
	"context"
	"io"

	"golang.org/x/time/rate"

	"github.com/packetd/splitby/common"
)

// throttledReader 对读取进行限速
//
// 单次读取不超过令牌桶容量 读取之后再等待相应数量的令牌
type throttledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func newThrottledReader(ctx context.Context, r io.Reader, bytesPerSec int) *throttledReader {
	burst := common.ReadWriteBlockSize
	if bytesPerSec < burst {
		burst = bytesPerSec
	}
	return &throttledReader{
		ctx:     ctx,
		r:       r,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
	}
}

func (tr *throttledReader) Read(p []byte) (int, error) {
	if burst := tr.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}

	n, err := tr.r.Read(p)
	if n <= 0 {
		return n, err
	}
	if werr := tr.limiter.WaitN(tr.ctx, n); werr != nil {
		return n, werr
	}
	return n, err
}
