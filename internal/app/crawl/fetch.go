package crawl

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/John-Robertt/imgcrawl/internal/domain"
	"github.com/John-Robertt/imgcrawl/internal/infra/fsx"
	"github.com/John-Robertt/imgcrawl/internal/infra/httpx"
)

// FetchAndSave 把 task.URL 的响应体按固定块大小顺序写入 <out_dir>/<name>.jpg，返回写入字节数。
//
// 文件先于请求打开；文件句柄与响应体在任何返回路径上都会释放。
// 失败时不清理已写入的部分文件，也不重试（重试只在 transport 层按配置进行）。
func (c *Crawler) FetchAndSave(ctx context.Context, client *http.Client, task domain.ImageTask) (int64, error) {
	started := time.Now()
	dst := filepath.Join(c.cfg.OutDir, task.FileName())

	f, err := fsx.CreateFile(c.cfg.OutDir, task.FileName())
	if err != nil {
		return 0, fmt.Errorf("打开文件失败：%w", err)
	}
	defer func() { _ = f.Close() }()

	resp, err := httpx.Get(ctx, client, task.URL, c.cfg.StrictStatus)
	if err != nil {
		return 0, fmt.Errorf("下载图片失败：%s：%w", task.URL, err)
	}
	defer resp.Body.Close()

	n, err := fsx.CopyChunked(f, resp.Body, c.cfg.ChunkSize)
	if err != nil {
		return n, fmt.Errorf("写入 %s 失败（已写入 %d 字节）：%w", dst, n, err)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("关闭 %s 失败：%w", dst, err)
	}

	c.obs.OnImageSaved(task, n, time.Since(started))
	return n, nil
}
