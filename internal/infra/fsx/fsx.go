package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultChunkSize 是流式写入时单次读/写的块大小。
const DefaultChunkSize = 2048

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// CreateFile 在 dir 下创建（或截断）name 用于写入。
//
// 约束：
// - 不创建 dir：目录必须事先存在，否则返回底层的 not-exist 错误
// - 同名已存在时直接覆盖
// - 目标是目录时返回 PathTypeConflictError，而不是 open 的 EISDIR
func CreateFile(dir, name string) (*os.File, error) {
	dst := filepath.Join(dir, name)
	if fi, err := os.Lstat(dst); err == nil && fi.IsDir() {
		return nil, &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
	}
	return os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

// CopyChunked 以固定 chunk 字节为单位把 src 顺序写入 dst，返回写入的总字节数。
//
// 与 io.Copy 不同，这里不走 ReaderFrom/WriterTo 快捷路径：
// 每次最多读 chunk 字节，写完整块后再读下一块。
func CopyChunked(dst io.Writer, src io.Reader, chunk int) (int64, error) {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	buf := make([]byte, chunk)

	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if err := writeAll(dst, buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
