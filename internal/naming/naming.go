package naming

import "strings"

// extLen 是被当作“扩展名”剥掉的固定字符数（按 .jpg 这类 4 字符扩展名设计）。
const extLen = 4

// BaseName 从图片 URL 推导落盘用的 base name：
// 取最后一个 '/' 之后的片段，再去掉末尾 4 个字符。
//
// 注意：这是固定偏移截断，不识别真实扩展名：
// - "photo.jpeg" => "photo."
// - "photo.png"  => "photo"（碰巧正确）
// - "photo"      => "p"
// - 片段不足 4 个字符 => ""
// 调用方依赖这种行为做去重键与文件名，不要在这里“修正”。
func BaseName(rawURL string) string {
	seg := rawURL
	if i := strings.LastIndexByte(rawURL, '/'); i >= 0 {
		seg = rawURL[i+1:]
	}
	r := []rune(seg)
	if len(r) <= extLen {
		return ""
	}
	return string(r[:len(r)-extLen])
}

// JoinLink 把 href 直接拼在 base 后面，得到目录页 URL。
// 不做 URL 解析、不做斜杠归一化：base 自己带的斜杠原样保留。
func JoinLink(base, href string) string {
	return base + href
}
