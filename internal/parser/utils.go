package parser

import (
	"regexp"
	"strings"
)

var (
	fullWidthNote     = regexp.MustCompile(`（.*?）`)
	halfWidthNote     = regexp.MustCompile(`\(.*?\)`)
	whitespacePattern = regexp.MustCompile(`[\s\p{Z}\x{FEFF}]+`)
	keywordSeparators = regexp.MustCompile(`[,，;；]`)
)

// NormalizeHeader 规范化表头文本，模板与分支文件的列比较都必须经过这里
// 去除首尾空格、换行，先删全角括号注释再删半角括号注释，删除星号，并去掉所有空白（含全角空格）。
func NormalizeHeader(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return ""
	}
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = fullWidthNote.ReplaceAllString(name, "")
	name = halfWidthNote.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, "*", "")
	return whitespacePattern.ReplaceAllString(name, "")
}

// ContainsAny 检查文本是否包含任一关键词，空关键词忽略
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// SplitKeywords 按中英文逗号、分号拆分关键词列表
func SplitKeywords(raw string) []string {
	var out []string
	for _, part := range keywordSeparators.Split(raw, -1) {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func stripWhitespace(s string) string {
	return whitespacePattern.ReplaceAllString(s, "")
}
