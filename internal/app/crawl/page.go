package crawl

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/imgcrawl/internal/domain"
	"github.com/John-Robertt/imgcrawl/internal/extract"
	"github.com/John-Robertt/imgcrawl/internal/naming"
)

// DownloadPage 抓取一个目录页，提取图片地址，按 base name 去重后并发下载。
//
// - base name 已出现：跳过（不是错误）
// - 图片元素缺少源属性：该图片任务失败，同页其它任务照常执行
// - 等待本页全部任务结束后返回第一个错误
func (c *Crawler) DownloadPage(ctx context.Context, client *http.Client, pageURL string) error {
	started := time.Now()
	c.log.Debug("抓取目录页", "url", pageURL)

	doc, err := extract.FetchDocument(ctx, client, pageURL, c.cfg.StrictStatus)
	if err != nil {
		err = fmt.Errorf("抓取目录页失败：%w", err)
		c.log.Warn("目录页失败", "url", pageURL, "error", err)
		c.obs.OnPageDone(pageURL, 0, 0, err, time.Since(started))
		return err
	}

	var (
		g          errgroup.Group
		dispatched int
		skipped    int
	)
	for _, src := range extract.SelectAttr(doc, c.cfg.PictureSelector, c.cfg.SrcAttr) {
		u, err := src.Require()
		if err != nil {
			dispatched++
			g.Go(func() error {
				c.imageFailed(pageURL, domain.ImageTask{}, err)
				return err
			})
			continue
		}

		task := domain.ImageTask{URL: u, Name: naming.BaseName(u)}
		if !c.seen.TryAdd(task.Name) {
			skipped++
			c.obs.OnImageSkipped(pageURL, task)
			continue
		}

		dispatched++
		g.Go(func() error {
			if c.imageSem != nil {
				if err := c.imageSem.Acquire(ctx, 1); err != nil {
					c.imageFailed(pageURL, task, err)
					return err
				}
				defer c.imageSem.Release(1)
			}
			if _, err := c.FetchAndSave(ctx, client, task); err != nil {
				c.imageFailed(pageURL, task, err)
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	dur := time.Since(started)
	c.obs.OnPageDone(pageURL, dispatched, skipped, err, dur)
	if err != nil {
		c.log.Warn("目录页存在失败的图片", "url", pageURL, "dispatched", dispatched, "skipped", skipped, "error", err)
	} else {
		c.log.Info("目录页完成", "url", pageURL, "dispatched", dispatched, "skipped", skipped, "dur", dur)
	}
	return err
}

func (c *Crawler) imageFailed(pageURL string, task domain.ImageTask, err error) {
	c.log.Warn("图片失败", "page", pageURL, "url", task.URL, "name", task.Name, "error", err)
	c.obs.OnImageFailed(pageURL, task, err)
}
