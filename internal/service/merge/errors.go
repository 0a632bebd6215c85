package merge

import "errors"

// 前置条件错误：不做任何处理直接返回
var (
	ErrNoTemplate      = errors.New("请先上传模板文件，再进行合并。")
	ErrNoFiles         = errors.New("请至少上传一份支行 Excel。")
	ErrEmptyTemplate   = errors.New("模板文件不能为空。")
	ErrNothingToExport = errors.New("没有可导出的汇总结果，请先完成合并。")
)

// 模板结构错误：分析失败，不保存模板
var (
	ErrHeaderNotFound = errors.New("未找到表头行，请检查模板内容。")
	ErrEmptyHeader    = errors.New("模板表头没有有效列，请检查模板内容。")
)

// DuplicateHeaderError 模板中多列规范化后同名
type DuplicateHeaderError struct {
	Header string
}

func (e *DuplicateHeaderError) Error() string {
	return "模板表头重复：" + e.Header + "，请检查模板内容。"
}

// TemplateParseError 模板文件无法解析
type TemplateParseError struct {
	Err error
}

func (e *TemplateParseError) Error() string {
	return "模板解析失败：" + e.Err.Error()
}

func (e *TemplateParseError) Unwrap() error {
	return e.Err
}

// IsPrecondition 是否为调用前置条件错误
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoTemplate) || errors.Is(err, ErrNoFiles) ||
		errors.Is(err, ErrEmptyTemplate) || errors.Is(err, ErrNothingToExport)
}

// IsTemplateStructure 是否为模板内容/结构错误
func IsTemplateStructure(err error) bool {
	var parseErr *TemplateParseError
	var dupErr *DuplicateHeaderError
	return errors.Is(err, ErrHeaderNotFound) || errors.Is(err, ErrEmptyHeader) ||
		errors.As(err, &parseErr) || errors.As(err, &dupErr)
}

// 文件级问题描述
const (
	msgEmptyFile       = "文件为空，已跳过。"
	msgHeaderNotFound  = "未找到匹配模板的表头，已跳过。"
	msgParseFailed     = "解析失败："
	msgDuplicateColumn = "列重复，已跳过该文件"
	msgMissingColumn   = "缺少列："
)
