package httpx

import (
	"fmt"
	"strings"
)

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码（仅在 strict 模式下产生）。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d url=%s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d url=%s location=%s", e.StatusCode, e.URL, loc)
}
