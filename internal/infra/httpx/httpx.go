package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Options 描述一次运行共享的 HTTP client 策略。
// 零值即“原样行为”：无超时、不重试、不加自定义 header。
type Options struct {
	// Timeout 为 0 表示不设总超时（含读 body）。
	Timeout time.Duration
	// RetryMax 表示最大重试次数（不含首次尝试）。只对网络错误生效，不看状态码。
	RetryMax int
	// UserAgent 为空时不设置 User-Agent（沿用 Go 默认）。
	UserAgent string
}

// Transport 把“可选 UA + 有界重试”固化为统一策略，抓取层只负责发 GET 与解析。
type Transport struct {
	Base http.RoundTripper

	UserAgent string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := req
		if t.UserAgent != "" && req.Header.Get("User-Agent") == "" {
			// Clone 避免在 RoundTripper 内部“污染”调用方的 request。
			r = req.Clone(req.Context())
			r.Header.Set("User-Agent", t.UserAgent)
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// NewClient 构造整个运行共享的 HTTP client（对应一次“会话”）。
// 调用方在运行结束时调用 CloseIdleConnections 释放连接。
func NewClient(opts Options) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	// 页面 -> 图片两级扇出都打到同一 host，放宽每 host 空闲连接数以复用连接。
	base.MaxIdleConnsPerHost = 32

	return &http.Client{
		Transport: &Transport{
			Base:      base,
			UserAgent: strings.TrimSpace(opts.UserAgent),
			RetryMax:  opts.RetryMax,
		},
		Timeout: opts.Timeout,
	}
}

// Get 发起 GET 并返回响应；调用方负责关闭 Body。
//
// strict=false 时不检查状态码（非 2xx 也照常返回响应体）；
// strict=true 时非 2xx 返回 *HTTPStatusError，且已关闭 Body。
func Get(ctx context.Context, c *http.Client, u string, strict bool) (*http.Response, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if strict && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		resp.Body.Close()
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	return resp, nil
}
