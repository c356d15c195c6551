package scan

import (
	"io/fs"
	"path/filepath"
)

// Size 是一次目录遍历的统计结果。
type Size struct {
	Bytes int64
	Files int
}

// FolderSize 递归遍历 root，累加所有普通文件的字节数。
//
// 说明：
// - 只看磁盘现状，与本次抓取的内存状态无关（历史遗留文件同样计入）
// - 目录、符号链接等非普通文件不计入
// - 只做 stat（DirEntry.Info），不读文件内容
func FolderSize(root string) (Size, error) {
	root = filepath.Clean(root)

	var out Size
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out.Bytes += info.Size()
		out.Files++
		return nil
	})
	if err != nil {
		return Size{}, err
	}
	return out, nil
}
