package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/John-Robertt/imgcrawl/internal/app/crawl"
	"github.com/John-Robertt/imgcrawl/internal/config"
	"github.com/John-Robertt/imgcrawl/internal/domain"
)

var _ crawl.Observer = (*progressUI)(nil)

// progressUI 把 crawl 事件写成面向用户的逐行输出：每保存一张图片一行 "saved <name>.jpg"。
//
// 其它过程信息（目录页、失败原因）由 slog 写到 stderr，这里只负责 stdout 与计数。
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
	st        runStats
}

type runStats struct {
	Pages       int
	PagesFailed int
	Saved       int
	Skipped     int
	Failed      int
	Bytes       int64
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = time.Now()
	}
}

func (p *progressUI) OnIndexDone(n int, dur time.Duration) {}

func (p *progressUI) OnImageSaved(task domain.ImageTask, bytes int64, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.Saved++
	p.st.Bytes += bytes
	fmt.Fprintf(p.w, "saved %s\n", task.FileName())
}

func (p *progressUI) OnImageSkipped(pageURL string, task domain.ImageTask) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.Skipped++
}

func (p *progressUI) OnImageFailed(pageURL string, task domain.ImageTask, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.Failed++
}

func (p *progressUI) OnPageDone(pageURL string, dispatched, skipped int, err error, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.Pages++
	if err != nil {
		p.st.PagesFailed++
	}
}

func (p *progressUI) stats() runStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st
}

func (p *progressUI) elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		return 0
	}
	return time.Since(p.startedAt).Round(time.Millisecond)
}
