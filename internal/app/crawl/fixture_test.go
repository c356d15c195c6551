package crawl

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/imgcrawl/internal/config"
	"github.com/John-Robertt/imgcrawl/internal/domain"
)

// site 是一个最小的“索引页 -> 目录页 -> 图片”站点夹具。
//
// pages: 目录页 href -> 该页图片的路径列表（相对站点根，例如 "/img/a.jpg"）。
// 路径为空串表示该 picture 元素不带 src。
type site struct {
	t *testing.T

	cards []string
	pages map[string][]string
	// broken 中的目录页请求会被直接断开连接（模拟网络错误）。
	broken map[string]bool

	mu       sync.Mutex
	requests map[string]int
	inFlight int
	maxImg   int

	imageDelay time.Duration
}

func newSite(t *testing.T, cards []string, pages map[string][]string) *site {
	return &site{
		t:        t,
		cards:    cards,
		pages:    pages,
		broken:   map[string]bool{},
		requests: map[string]int{},
	}
}

func imageBody(p string) []byte {
	return bytes.Repeat([]byte(p+"|"), 700)
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests[r.URL.Path]++
	s.mu.Unlock()

	switch {
	case r.URL.Path == "/index.html":
		var b strings.Builder
		b.WriteString("<html><body>")
		for _, c := range s.cards {
			fmt.Fprintf(&b, `<div class="item_card"><a href="%s">card</a></div>`, c)
		}
		b.WriteString("</body></html>")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, b.String())

	case strings.HasPrefix(r.URL.Path, "/img/"):
		s.mu.Lock()
		s.inFlight++
		if s.inFlight > s.maxImg {
			s.maxImg = s.inFlight
		}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.inFlight--
			s.mu.Unlock()
		}()
		if s.imageDelay > 0 {
			time.Sleep(s.imageDelay)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(imageBody(r.URL.Path))

	default:
		href := strings.TrimPrefix(r.URL.Path, "/")
		if s.broken[href] {
			hj, ok := w.(http.Hijacker)
			if !ok {
				s.t.Errorf("ResponseWriter 不支持 Hijack")
				return
			}
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		imgs, ok := s.pages[href]
		if !ok {
			http.NotFound(w, r)
			return
		}
		var b strings.Builder
		b.WriteString("<html><body>")
		for _, p := range imgs {
			if p == "" {
				b.WriteString(`<img class="picture">`)
				continue
			}
			fmt.Fprintf(&b, `<img class="picture" src="http://%s%s">`, r.Host, p)
		}
		b.WriteString("</body></html>")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, b.String())
	}
}

func (s *site) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

func (s *site) maxImageInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxImg
}

func (s *site) start() *httptest.Server {
	srv := httptest.NewServer(s)
	s.t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, srv *httptest.Server) config.EffectiveConfig {
	t.Helper()
	eff := config.Default(t.TempDir())
	eff.IndexURL = srv.URL + "/index.html"
	eff.BaseURL = srv.URL + "/"
	eff.OutDir = filepath.Join(t.TempDir(), "all_images")
	eff.SizeDir = eff.OutDir
	if err := os.MkdirAll(eff.OutDir, 0o755); err != nil {
		t.Fatalf("创建输出目录失败：%v", err)
	}
	return eff
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordObserver struct {
	mu sync.Mutex

	starts  int
	index   int
	saved   []string
	skipped []string
	failed  []error
	pages   map[string]error
}

func (o *recordObserver) OnStart(config.EffectiveConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
}

func (o *recordObserver) OnIndexDone(n int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.index = n
}

func (o *recordObserver) OnImageSaved(task domain.ImageTask, _ int64, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.saved = append(o.saved, task.FileName())
}

func (o *recordObserver) OnImageSkipped(_ string, task domain.ImageTask) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped = append(o.skipped, task.Name)
}

func (o *recordObserver) OnImageFailed(_ string, _ domain.ImageTask, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, err)
}

func (o *recordObserver) OnPageDone(pageURL string, _, _ int, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pages == nil {
		o.pages = map[string]error{}
	}
	o.pages[pageURL] = err
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}
