package crawl

import (
	"time"

	"github.com/John-Robertt/imgcrawl/internal/config"
	"github.com/John-Robertt/imgcrawl/internal/domain"
)

// Observer 把“抓取进度/单图结果”从核心流程中解耦出来。
//
// 约束：
// - crawl 包只负责发事件，不向 stdout 输出任何内容
// - 实现必须并发安全：事件来自多个 goroutine，顺序不确定
type Observer interface {
	// OnStart 在 Run 开始时调用一次。
	OnStart(eff config.EffectiveConfig)
	// OnIndexDone 在索引页解析完成后调用，n 为目录页链接数。
	OnIndexDone(n int, dur time.Duration)
	// OnImageSaved 在一张图片完整写入并关闭文件后调用。
	OnImageSaved(task domain.ImageTask, bytes int64, dur time.Duration)
	// OnImageSkipped 在图片因 base name 已出现而被跳过时调用。
	OnImageSkipped(pageURL string, task domain.ImageTask)
	// OnImageFailed 在单张图片任务失败时调用（err 为该任务返回的错误）。
	OnImageFailed(pageURL string, task domain.ImageTask, err error)
	// OnPageDone 在目录页的所有图片任务结束后调用；err 为该页返回的错误。
	OnPageDone(pageURL string, dispatched, skipped int, err error, dur time.Duration)
}

type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig) {}
func (nopObserver) OnIndexDone(int, time.Duration) {}
func (nopObserver) OnImageSaved(domain.ImageTask, int64, time.Duration) {}
func (nopObserver) OnImageSkipped(string, domain.ImageTask) {}
func (nopObserver) OnImageFailed(string, domain.ImageTask, error) {}
func (nopObserver) OnPageDone(string, int, int, error, time.Duration) {}
