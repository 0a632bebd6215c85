package grid

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyFile 上传内容为空
var ErrEmptyFile = errors.New("empty file")

var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Open 读取整个流并解码为工作簿快照
// 文件句柄在返回前已经释放，调用方无需关闭。
func Open(r io.Reader, name string) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return Decode(data, name)
}

// OpenFile 从磁盘读取工作簿
func OpenFile(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Open(f, filepath.Base(path))
}

// Decode 按文件头识别格式：OLE2 走 xls，其余按 xlsx 处理
func Decode(data []byte, name string) (*Workbook, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if bytes.HasPrefix(data, oleMagic) {
		return decodeXLS(data)
	}
	wb, err := decodeXLSX(data)
	if err != nil && strings.EqualFold(filepath.Ext(name), ".xls") {
		// 扩展名为 xls 但不是 OLE2 文件头的情况，再尝试一次旧格式
		if legacy, xlsErr := decodeXLS(data); xlsErr == nil {
			return legacy, nil
		}
	}
	return wb, err
}

// IsSpreadsheetName 是否为支持的表格文件扩展名
func IsSpreadsheetName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls":
		return true
	}
	return false
}
