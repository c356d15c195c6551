package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件/环境变量无法解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// DefaultFileName 是 cwd 下自动发现的配置文件名（可选）。
const DefaultFileName = "imgcrawl.yaml"

// 内置默认值：不提供任何配置文件/环境变量时直接使用。
const (
	DefaultIndexURL        = "https://parsinger.ru/asyncio/aiofile/2/index.html"
	DefaultBaseURL         = "https://parsinger.ru/asyncio/aiofile/2/"
	DefaultCardSelector    = ".item_card > a"
	DefaultPictureSelector = ".picture"
	DefaultSrcAttr         = "src"
	DefaultOutDir          = "all_images"
	DefaultChunkSize       = 2048
	DefaultLogLevel        = "info"

	maxRetry = 10
)

// envPrefix 是环境变量覆盖的统一前缀，例如 IMGCRAWL_OUT_DIR。
const envPrefix = "IMGCRAWL_"

// CLIArgs 只包含 CLI 暴露的入口。
type CLIArgs struct {
	// ConfigPath 非空时必须存在；为空时尝试 <cwd>/imgcrawl.yaml（可选）。
	ConfigPath string
}

// FileConfig 对应 imgcrawl.yaml 的解析结构。
type FileConfig struct {
	IndexURL         string        `yaml:"index_url"`
	BaseURL          string        `yaml:"base_url"`
	CardSelector     string        `yaml:"card_selector"`
	PictureSelector  string        `yaml:"picture_selector"`
	SrcAttr          string        `yaml:"src_attr"`
	OutDir           string        `yaml:"out_dir"`
	ChunkSize        int           `yaml:"chunk_size"`
	PageConcurrency  int           `yaml:"page_concurrency"`
	ImageConcurrency int           `yaml:"image_concurrency"`
	Timeout          time.Duration `yaml:"timeout"`
	RetryMax         int           `yaml:"retry_max"`
	UserAgent        string        `yaml:"user_agent"`
	StrictStatus     *bool         `yaml:"strict_status"`
	ReportSize       *bool         `yaml:"report_size"`
	SizeDir          string        `yaml:"size_dir"`
	LogLevel         string        `yaml:"log_level"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	IndexURL        string
	BaseURL         string
	CardSelector    string
	PictureSelector string
	SrcAttr         string

	// OutDir 为绝对路径；抓取过程不会创建它。
	OutDir    string
	ChunkSize int

	// 0 表示不限并发。
	PageConcurrency  int
	ImageConcurrency int

	Timeout      time.Duration
	RetryMax     int
	UserAgent    string
	StrictStatus bool

	ReportSize bool
	// SizeDir 为绝对路径；默认等于 OutDir。
	SizeDir string

	LogLevel slog.Level

	// Source 是实际读取的配置文件路径；未读取任何文件时为空。
	Source string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Default 返回只由内置默认值构成的配置（相对路径以 cwd 为基准）。
func Default(cwd string) EffectiveConfig {
	eff, _ := merge(cwd, FileConfig{}, "")
	return eff
}

// LoadEffective 发现并读取配置文件，叠加环境变量，得到最终配置。
//
// 覆盖优先级（固定）：环境变量 IMGCRAWL_* > 配置文件 > 内置默认值。
// 发现规则：
// 1) cli.ConfigPath 非空：必须存在
// 2) 否则尝试 <cwd>/imgcrawl.yaml，不存在不报错
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	required := strings.TrimSpace(cli.ConfigPath) != ""
	cfgPath := filepath.Join(cwdAbs, DefaultFileName)
	if required {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists && required {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	source := ""
	if exists {
		source = cfgPath
	}

	if err := applyEnv(&fc); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: "env", Err: err}
	}

	eff, err := merge(cwdAbs, fc, source)
	if err != nil {
		where := source
		if where == "" {
			where = "env"
		}
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: where, Err: err}
	}
	return eff, nil
}

func merge(cwdAbs string, fc FileConfig, source string) (EffectiveConfig, error) {
	eff := EffectiveConfig{
		IndexURL:         orDefault(fc.IndexURL, DefaultIndexURL),
		BaseURL:          orDefault(fc.BaseURL, DefaultBaseURL),
		CardSelector:     orDefault(fc.CardSelector, DefaultCardSelector),
		PictureSelector:  orDefault(fc.PictureSelector, DefaultPictureSelector),
		SrcAttr:          orDefault(fc.SrcAttr, DefaultSrcAttr),
		OutDir:           absCleanFrom(cwdAbs, orDefault(fc.OutDir, DefaultOutDir)),
		ChunkSize:        fc.ChunkSize,
		PageConcurrency:  fc.PageConcurrency,
		ImageConcurrency: fc.ImageConcurrency,
		Timeout:          fc.Timeout,
		RetryMax:         fc.RetryMax,
		UserAgent:        strings.TrimSpace(fc.UserAgent),
		ReportSize:       true,
		Source:           source,
	}
	if fc.StrictStatus != nil {
		eff.StrictStatus = *fc.StrictStatus
	}
	if fc.ReportSize != nil {
		eff.ReportSize = *fc.ReportSize
	}
	eff.SizeDir = eff.OutDir
	if strings.TrimSpace(fc.SizeDir) != "" {
		eff.SizeDir = absCleanFrom(cwdAbs, fc.SizeDir)
	}

	if err := validateHTTPURL("index_url", eff.IndexURL); err != nil {
		return EffectiveConfig{}, err
	}
	if err := validateHTTPURL("base_url", eff.BaseURL); err != nil {
		return EffectiveConfig{}, err
	}

	if eff.ChunkSize == 0 {
		eff.ChunkSize = DefaultChunkSize
	}
	if eff.ChunkSize < 0 {
		return EffectiveConfig{}, fmt.Errorf("chunk_size 不能为负数：%d", eff.ChunkSize)
	}
	if eff.PageConcurrency < 0 || eff.ImageConcurrency < 0 {
		return EffectiveConfig{}, fmt.Errorf("并发数不能为负数（0 表示不限）：page=%d image=%d", eff.PageConcurrency, eff.ImageConcurrency)
	}
	if eff.Timeout < 0 {
		return EffectiveConfig{}, fmt.Errorf("timeout 不能为负数：%s", eff.Timeout)
	}
	// retry_max 超出范围截断。
	if eff.RetryMax < 0 {
		eff.RetryMax = 0
	}
	if eff.RetryMax > maxRetry {
		eff.RetryMax = maxRetry
	}

	lvl, err := parseLevel(orDefault(fc.LogLevel, DefaultLogLevel))
	if err != nil {
		return EffectiveConfig{}, err
	}
	eff.LogLevel = lvl
	return eff, nil
}

// applyEnv 用 IMGCRAWL_* 环境变量覆盖 fc 中的对应字段（未设置的不动）。
func applyEnv(fc *FileConfig) error {
	str := map[string]*string{
		"INDEX_URL":        &fc.IndexURL,
		"BASE_URL":         &fc.BaseURL,
		"CARD_SELECTOR":    &fc.CardSelector,
		"PICTURE_SELECTOR": &fc.PictureSelector,
		"SRC_ATTR":         &fc.SrcAttr,
		"OUT_DIR":          &fc.OutDir,
		"USER_AGENT":       &fc.UserAgent,
		"SIZE_DIR":         &fc.SizeDir,
		"LOG_LEVEL":        &fc.LogLevel,
	}
	for k, p := range str {
		if v, ok := os.LookupEnv(envPrefix + k); ok {
			*p = v
		}
	}

	ints := map[string]*int{
		"CHUNK_SIZE":        &fc.ChunkSize,
		"PAGE_CONCURRENCY":  &fc.PageConcurrency,
		"IMAGE_CONCURRENCY": &fc.ImageConcurrency,
		"RETRY_MAX":         &fc.RetryMax,
	}
	for k, p := range ints {
		v, ok := os.LookupEnv(envPrefix + k)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s 必须是整数：%q", envPrefix, k, v)
		}
		*p = n
	}

	bools := map[string]**bool{
		"STRICT_STATUS": &fc.StrictStatus,
		"REPORT_SIZE":   &fc.ReportSize,
	}
	for k, p := range bools {
		v, ok := os.LookupEnv(envPrefix + k)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s 必须是 true 或 false：%q", envPrefix, k, v)
		}
		*p = &b
	}

	if v, ok := os.LookupEnv(envPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sTIMEOUT 必须是时长（例如 30s）：%q", envPrefix, v)
		}
		fc.Timeout = d
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", field, raw)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log_level 只能是 debug|info|warn|error，实际是 %q", s)
	}
	return lvl, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
