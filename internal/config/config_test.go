package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEffective_NoFileUsesDefaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.IndexURL != DefaultIndexURL || eff.BaseURL != DefaultBaseURL {
		t.Fatalf("URL 默认值不符合预期：%+v", eff)
	}
	if eff.CardSelector != ".item_card > a" || eff.PictureSelector != ".picture" || eff.SrcAttr != "src" {
		t.Fatalf("选择器默认值不符合预期：%+v", eff)
	}
	if eff.OutDir != filepath.Join(cwd, "all_images") {
		t.Fatalf("期望 out_dir=%q，实际 %q", filepath.Join(cwd, "all_images"), eff.OutDir)
	}
	if eff.SizeDir != eff.OutDir {
		t.Fatalf("size_dir 默认应等于 out_dir，实际 %q", eff.SizeDir)
	}
	if eff.ChunkSize != 2048 {
		t.Fatalf("期望 chunk_size=2048，实际 %d", eff.ChunkSize)
	}
	if eff.PageConcurrency != 0 || eff.ImageConcurrency != 0 {
		t.Fatalf("默认应不限并发，实际 page=%d image=%d", eff.PageConcurrency, eff.ImageConcurrency)
	}
	if eff.Timeout != 0 || eff.RetryMax != 0 || eff.UserAgent != "" || eff.StrictStatus {
		t.Fatalf("网络策略默认值不符合预期：%+v", eff)
	}
	if !eff.ReportSize {
		t.Fatalf("默认应输出目录大小")
	}
	if eff.LogLevel != slog.LevelInfo {
		t.Fatalf("期望 log_level=info，实际 %v", eff.LogLevel)
	}
	if eff.Source != "" {
		t.Fatalf("未读取配置文件时 Source 应为空，实际 %q", eff.Source)
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "missing.yaml"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_FileOverridesDefaults(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(`
index_url: http://127.0.0.1:8080/index.html
base_url: http://127.0.0.1:8080/
out_dir: imgs
chunk_size: 4096
page_concurrency: 2
image_concurrency: 8
timeout: 30s
retry_max: 99
user_agent: imgcrawl/1
strict_status: true
report_size: false
log_level: debug
`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.IndexURL != "http://127.0.0.1:8080/index.html" || eff.BaseURL != "http://127.0.0.1:8080/" {
		t.Fatalf("URL 未被覆盖：%+v", eff)
	}
	if eff.OutDir != filepath.Join(cwd, "imgs") || eff.SizeDir != eff.OutDir {
		t.Fatalf("out_dir/size_dir 不符合预期：%q %q", eff.OutDir, eff.SizeDir)
	}
	if eff.ChunkSize != 4096 || eff.PageConcurrency != 2 || eff.ImageConcurrency != 8 {
		t.Fatalf("数值字段未被覆盖：%+v", eff)
	}
	if eff.Timeout != 30*time.Second {
		t.Fatalf("期望 timeout=30s，实际 %v", eff.Timeout)
	}
	if eff.RetryMax != maxRetry {
		t.Fatalf("retry_max 应截断为 %d，实际 %d", maxRetry, eff.RetryMax)
	}
	if eff.UserAgent != "imgcrawl/1" || !eff.StrictStatus || eff.ReportSize {
		t.Fatalf("字段未被覆盖：%+v", eff)
	}
	if eff.LogLevel != slog.LevelDebug {
		t.Fatalf("期望 log_level=debug，实际 %v", eff.LogLevel)
	}
	if eff.Source != filepath.Join(cwd, DefaultFileName) {
		t.Fatalf("Source 不符合预期：%q", eff.Source)
	}
}

func TestLoadEffective_EnvOverridesFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "custom.yaml"), []byte("out_dir: from-file\nimage_concurrency: 4\n"))

	t.Setenv("IMGCRAWL_OUT_DIR", "from-env")
	t.Setenv("IMGCRAWL_IMAGE_CONCURRENCY", "16")
	t.Setenv("IMGCRAWL_STRICT_STATUS", "true")
	t.Setenv("IMGCRAWL_TIMEOUT", "5s")

	eff, err := LoadEffective(cwd, CLIArgs{ConfigPath: "custom.yaml"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.OutDir != filepath.Join(cwd, "from-env") {
		t.Fatalf("环境变量应覆盖配置文件，实际 out_dir=%q", eff.OutDir)
	}
	if eff.ImageConcurrency != 16 || !eff.StrictStatus || eff.Timeout != 5*time.Second {
		t.Fatalf("环境变量未生效：%+v", eff)
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad yaml", yaml: "index_url: [\n"},
		{name: "bad scheme", yaml: "index_url: ftp://x.test/index.html\n"},
		{name: "no host", yaml: "base_url: /relative/\n"},
		{name: "negative chunk", yaml: "chunk_size: -1\n"},
		{name: "negative concurrency", yaml: "page_concurrency: -2\n"},
		{name: "bad level", yaml: "log_level: loud\n"},
		{name: "bad env int", env: map[string]string{"IMGCRAWL_RETRY_MAX": "many"}},
		{name: "bad env bool", env: map[string]string{"IMGCRAWL_REPORT_SIZE": "maybe"}},
		{name: "bad env duration", env: map[string]string{"IMGCRAWL_TIMEOUT": "soon"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cwd := t.TempDir()
			if c.yaml != "" {
				writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(c.yaml))
			}
			for k, v := range c.env {
				t.Setenv(k, v)
			}

			_, err := LoadEffective(cwd, CLIArgs{})
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cwd := t.TempDir()
	eff := Default(cwd)
	if eff.IndexURL != DefaultIndexURL || eff.OutDir != filepath.Join(cwd, DefaultOutDir) || eff.ChunkSize != DefaultChunkSize {
		t.Fatalf("Default 不符合预期：%+v", eff)
	}
}

func writeFile(t *testing.T, p string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
