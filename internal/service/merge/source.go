package merge

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Source 待读取的工作簿：原始文件名 + 打开方式
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// BytesSource 内存中的文件
func BytesSource(name string, data []byte) Source {
	return Source{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FileSource 磁盘文件
func FileSource(path string) Source {
	return Source{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}
