package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/John-Robertt/imgcrawl/internal/config"
	"github.com/John-Robertt/imgcrawl/internal/domain"
	"github.com/John-Robertt/imgcrawl/internal/extract"
	"github.com/John-Robertt/imgcrawl/internal/infra/httpx"
	"github.com/John-Robertt/imgcrawl/internal/naming"
)

// hrefAttr 是索引页卡片链接读取的属性名。
const hrefAttr = "href"

// Crawler 持有一次抓取所需的全部共享状态：配置、已见名字集合、并发上限与事件出口。
//
// 并发模型：
// - 索引页 -> N 个目录页（并发）-> 每页 M 张图片（并发）
// - 两级都是“全部启动，再全部等待”：任务失败不取消兄弟任务，Wait 返回第一个错误
// - page_concurrency / image_concurrency 为 0 时不限并发
type Crawler struct {
	cfg  config.EffectiveConfig
	seen *domain.SeenNames
	obs  Observer
	log  *slog.Logger

	// imageSem 是所有目录页共享的图片并发上限；nil 表示不限。
	imageSem *semaphore.Weighted

	// newClient 构造一次运行共享的 HTTP 会话（测试可替换）。
	newClient func() *http.Client
}

// New 构造 Crawler。obs/log 允许为 nil。
func New(eff config.EffectiveConfig, obs Observer, log *slog.Logger) *Crawler {
	if obs == nil {
		obs = nopObserver{}
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Crawler{
		cfg:  eff,
		seen: domain.NewSeenNames(),
		obs:  obs,
		log:  log,
		newClient: func() *http.Client {
			return httpx.NewClient(httpx.Options{
				Timeout:   eff.Timeout,
				RetryMax:  eff.RetryMax,
				UserAgent: eff.UserAgent,
			})
		},
	}
	if eff.ImageConcurrency > 0 {
		c.imageSem = semaphore.NewWeighted(int64(eff.ImageConcurrency))
	}
	return c
}

// Seen 返回本 Crawler 的已见名字集合（跨 Run 共享）。
func (c *Crawler) Seen() *domain.SeenNames { return c.seen }

// Run 抓取索引页，并发下载每个目录页的图片，等待全部完成。
//
// HTTP 会话在 Run 内创建并在返回前关闭（只关闭一次）。
// 返回第一个失败的目录页错误；其它目录页不受影响，照常跑完。
func (c *Crawler) Run(ctx context.Context) error {
	client := c.newClient()
	defer client.CloseIdleConnections()

	c.obs.OnStart(c.cfg)

	started := time.Now()
	doc, err := extract.FetchDocument(ctx, client, c.cfg.IndexURL, c.cfg.StrictStatus)
	if err != nil {
		return fmt.Errorf("抓取索引页失败：%w", err)
	}
	cards := extract.SelectAttr(doc, c.cfg.CardSelector, hrefAttr)
	c.obs.OnIndexDone(len(cards), time.Since(started))
	c.log.Info("索引页解析完成", "url", c.cfg.IndexURL, "pages", len(cards))

	var g errgroup.Group
	if c.cfg.PageConcurrency > 0 {
		g.SetLimit(c.cfg.PageConcurrency)
	}
	for _, card := range cards {
		g.Go(func() error {
			href, err := card.Require()
			if err != nil {
				c.log.Warn("目录页链接缺失", "selector", card.Selector, "index", card.Index, "error", err)
				c.obs.OnPageDone("", 0, 0, err, 0)
				return err
			}
			return c.DownloadPage(ctx, client, string(catalogLink(c.cfg.BaseURL, href)))
		})
	}
	return g.Wait()
}

func catalogLink(base, href string) domain.CatalogLink {
	return domain.CatalogLink(naming.JoinLink(base, href))
}
