package domain

// CatalogLink 是目录页的完整 URL（base_url 与 href 直接拼接，不做校验）。
type CatalogLink string

// ImageTask 是一次“下载并落盘”的输入：源 URL + 目标 base name（不含 .jpg）。
// 只由执行它的 goroutine 持有，完成即丢弃。
type ImageTask struct {
	URL  string
	Name string
}

// FileName 是落盘文件名：<name>.jpg。
func (t ImageTask) FileName() string { return t.Name + ".jpg" }
